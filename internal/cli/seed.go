package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/repository"
)

type seedColleges interface {
	FindByCode(ctx context.Context, code string) (*models.College, error)
	Create(ctx context.Context, college *models.College) error
	Update(ctx context.Context, college *models.College) error
}

type seedDepartments interface {
	FindByCode(ctx context.Context, collegeID, code string) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department) error
}

type seedUsers interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type seedFaculty interface {
	Create(ctx context.Context, profile *models.FacultyProfile) error
}

type seedStudents interface {
	CreateWithUser(ctx context.Context, user *models.User, profile *models.StudentProfile) error
}

// Seeder creates the sample tenant and one account per role. Every step is skipped
// when its record already exists, so running it twice is harmless.
type Seeder struct {
	Colleges    seedColleges
	Departments seedDepartments
	Users       seedUsers
	Faculty     seedFaculty
	Students    seedStudents
	Logger      *zap.Logger
	Out         io.Writer
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

type sampleAccount struct {
	email, username, password, first, last string
	role                                   models.UserRole
	employeeID, office, phone              string
}

var sampleColleges = []models.College{
	{
		Code:         "MIT",
		Name:         "Massachusetts Institute of Technology",
		Address:      "77 Massachusetts Ave, Cambridge, MA 02139",
		ContactEmail: "admin@mit.edu",
		ContactPhone: "+1-617-253-1000",
	},
	{
		Code:         "STANFORD",
		Name:         "Stanford University",
		Address:      "450 Serra Mall, Stanford, CA 94305",
		ContactEmail: "admin@stanford.edu",
		ContactPhone: "+1-650-723-2300",
	},
}

// Run seeds the sample data.
func (s *Seeder) Run(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Out == nil {
		s.Out = io.Discard
	}

	var primary *models.College
	for i := range sampleColleges {
		college, err := s.college(ctx, sampleColleges[i])
		if err != nil {
			return err
		}
		if primary == nil {
			primary = college
		}
	}

	cse, err := s.department(ctx, primary.ID, "CSE", "Computer Science")
	if err != nil {
		return err
	}
	if _, err := s.department(ctx, primary.ID, "ECE", "Electronics and Communication"); err != nil {
		return err
	}

	if _, err := s.account(ctx, sampleAccount{
		email: "admin@example.com", username: "admin", password: "admin123",
		first: "Admin", last: "User", role: models.RoleSuperuser,
	}, nil, nil); err != nil {
		return err
	}

	principal, err := s.account(ctx, sampleAccount{
		email: "principal@example.com", username: "principal", password: "principal123",
		first: "Dr. Alice", last: "Johnson", role: models.RolePrincipal,
	}, primary, nil)
	if err != nil {
		return err
	}
	if principal != nil && primary.PrincipalID == nil {
		primary.PrincipalID = &principal.ID
		if err := s.Colleges.Update(ctx, primary); err != nil {
			return fmt.Errorf("assign principal: %w", err)
		}
	}

	hod, err := s.account(ctx, sampleAccount{
		email: "hod@example.com", username: "hod", password: "hod123",
		first: "Prof. Bob", last: "Williams", role: models.RoleHOD,
		employeeID: "MITH001", office: "HOD Office, CSE", phone: "+1-555-0345",
	}, primary, cse)
	if err != nil {
		return err
	}
	if hod != nil && cse.HODID == nil {
		cse.HODID = &hod.ID
		if err := s.Departments.Update(ctx, cse); err != nil {
			return fmt.Errorf("assign hod: %w", err)
		}
	}

	if _, err := s.account(ctx, sampleAccount{
		email: "faculty@example.com", username: "faculty", password: "faculty123",
		first: "Dr. Jane", last: "Smith", role: models.RoleFaculty,
		employeeID: "MITF001", office: "Building 32, Room 123", phone: "+1-555-0456",
	}, primary, cse); err != nil {
		return err
	}

	if err := s.student(ctx, primary, cse); err != nil {
		return err
	}

	s.Logger.Info("sample data seeded", zap.String("college", primary.Code))
	fmt.Fprintln(s.Out, "Sample data setup completed!")
	return nil
}

func (s *Seeder) college(ctx context.Context, sample models.College) (*models.College, error) {
	existing, err := s.Colleges.FindByCode(ctx, sample.Code)
	if err == nil {
		fmt.Fprintf(s.Out, "College already exists: %s\n", existing.Name)
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup college %s: %w", sample.Code, err)
	}
	college := sample
	if err := s.Colleges.Create(ctx, &college); err != nil {
		return nil, fmt.Errorf("create college %s: %w", sample.Code, err)
	}
	fmt.Fprintf(s.Out, "Created college: %s\n", college.Name)
	return &college, nil
}

func (s *Seeder) department(ctx context.Context, collegeID, code, name string) (*models.Department, error) {
	existing, err := s.Departments.FindByCode(ctx, collegeID, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup department %s: %w", code, err)
	}
	dept := &models.Department{Code: code, Name: name, CollegeID: collegeID}
	if err := s.Departments.Create(ctx, dept); err != nil {
		return nil, fmt.Errorf("create department %s: %w", code, err)
	}
	fmt.Fprintf(s.Out, "Created department: %s\n", name)
	return dept, nil
}

// account creates a user and, for department staff, a faculty profile. It returns
// the existing user when the email is taken.
func (s *Seeder) account(ctx context.Context, a sampleAccount, college *models.College, dept *models.Department) (*models.User, error) {
	existing, err := s.Users.FindByEmail(ctx, a.email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup %s: %w", a.email, err)
	}
	user, err := s.newUser(a, college, dept)
	if err != nil {
		return nil, err
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create %s: %w", a.email, err)
	}
	if dept != nil && a.employeeID != "" {
		profile := &models.FacultyProfile{
			UserID:         user.ID,
			EmployeeID:     a.employeeID,
			DepartmentID:   dept.ID,
			PhoneNumber:    a.phone,
			OfficeLocation: a.office,
		}
		if err := s.Faculty.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("create faculty profile for %s: %w", a.email, err)
		}
	}
	fmt.Fprintf(s.Out, "Created sample %s: %s (password: %s)\n", a.role, a.email, a.password)
	return user, nil
}

func (s *Seeder) student(ctx context.Context, college *models.College, dept *models.Department) error {
	a := sampleAccount{
		email: "student@example.com", username: "student", password: "student123",
		first: "John", last: "Doe", role: models.RoleStudent,
	}
	_, err := s.Users.FindByEmail(ctx, a.email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup %s: %w", a.email, err)
	}
	user, err := s.newUser(a, college, dept)
	if err != nil {
		return err
	}
	profile := &models.StudentProfile{
		StudentID:       "MIT2024001",
		YearOfAdmission: 2024,
		Course:          "Computer Science",
		Branch:          "CSE",
		DepartmentID:    dept.ID,
		PhoneNumber:     "+1-555-0123",
	}
	if err := s.Students.CreateWithUser(ctx, user, profile); err != nil {
		return fmt.Errorf("create sample student: %w", err)
	}
	fmt.Fprintf(s.Out, "Created sample student: %s (password: %s)\n", a.email, a.password)
	return nil
}

func (s *Seeder) newUser(a sampleAccount, college *models.College, dept *models.Department) (*models.User, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        a.email,
		Username:     a.username,
		FirstName:    a.first,
		LastName:     a.last,
		PasswordHash: string(hash),
		Role:         a.role,
		Active:       true,
	}
	if college != nil {
		user.CollegeID = &college.ID
	}
	if dept != nil {
		user.DepartmentID = &dept.ID
	}
	return user, nil
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed sample colleges, departments and one account per role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.close()

			seeder := &Seeder{
				Colleges:    repository.NewCollegeRepository(rt.db),
				Departments: repository.NewDepartmentRepository(rt.db),
				Users:       repository.NewUserRepository(rt.db),
				Faculty:     repository.NewFacultyProfileRepository(rt.db),
				Students:    repository.NewStudentProfileRepository(rt.db),
				Logger:      rt.logger,
				Out:         cmd.OutOrStdout(),
			}
			return seeder.Run(cmd.Context())
		},
	}
}
