package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RegisterRequest is the self-registration payload.
type RegisterRequest struct {
	Email           string   `json:"email" validate:"required,email"`
	Username        string   `json:"username" validate:"required,max=150"`
	FirstName       string   `json:"first_name" validate:"required"`
	LastName        string   `json:"last_name" validate:"required"`
	Password        string   `json:"password" validate:"required,min=8"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            UserRole `json:"role" validate:"required,oneof=student faculty"`
	CollegeID       string   `json:"college_id" validate:"required"`
	DepartmentID    string   `json:"department_id"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Username     string   `json:"username"`
	FullName     string   `json:"full_name"`
	Role         UserRole `json:"role"`
	CollegeID    *string  `json:"college_id,omitempty"`
	DepartmentID *string  `json:"department_id,omitempty"`
	IsStudent    bool     `json:"is_student"`
	IsFaculty    bool     `json:"is_faculty"`
	IsHOD        bool     `json:"is_hod"`
	IsPrincipal  bool     `json:"is_principal"`
}

// NewUserInfo projects a user into its public shape.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FullName:     u.FullName(),
		Role:         u.Role,
		CollegeID:    u.CollegeID,
		DepartmentID: u.DepartmentID,
		IsStudent:    u.IsStudent,
		IsFaculty:    u.IsFaculty,
		IsHOD:        u.IsHOD,
		IsPrincipal:  u.IsPrincipal,
	}
}

// JWTClaims represents the JWT payload for access tokens. It carries identity only;
// role and tenant are reloaded from the database on every request.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
