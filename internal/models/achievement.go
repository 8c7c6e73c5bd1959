package models

import (
	"path/filepath"
	"strings"
	"time"
)

// AchievementCategory classifies an achievement.
type AchievementCategory string

const (
	AchievementAcademic        AchievementCategory = "academic"
	AchievementExtracurricular AchievementCategory = "extracurricular"
	AchievementSports          AchievementCategory = "sports"
	AchievementCultural        AchievementCategory = "cultural"
	AchievementTechnical       AchievementCategory = "technical"
	AchievementLeadership      AchievementCategory = "leadership"
	AchievementVolunteer       AchievementCategory = "volunteer"
	AchievementOther           AchievementCategory = "other"
)

var achievementCategoryLabels = map[AchievementCategory]string{
	AchievementAcademic:        "Academic",
	AchievementExtracurricular: "Extracurricular",
	AchievementSports:          "Sports",
	AchievementCultural:        "Cultural",
	AchievementTechnical:       "Technical",
	AchievementLeadership:      "Leadership",
	AchievementVolunteer:       "Volunteer Work",
	AchievementOther:           "Other",
}

// Label returns the display name of the category.
func (c AchievementCategory) Label() string {
	if label, ok := achievementCategoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Valid reports whether c is a known category.
func (c AchievementCategory) Valid() bool {
	_, ok := achievementCategoryLabels[c]
	return ok
}

// DocumentExtensions lists the file types accepted for evidence and supporting documents.
var DocumentExtensions = []string{"pdf", "jpg", "jpeg", "png", "doc", "docx"}

// ImageExtensions lists the file types accepted for event circulars.
var ImageExtensions = []string{"jpg", "jpeg", "png"}

// HasExtension reports whether filename ends with one of the allowed extensions.
func HasExtension(filename string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// Achievement is a student accomplishment awaiting or holding approval.
type Achievement struct {
	ID               string              `db:"id" json:"id"`
	StudentProfileID string              `db:"student_profile_id" json:"student_profile_id"`
	Title            string              `db:"title" json:"title"`
	Description      string              `db:"description" json:"description"`
	Category         AchievementCategory `db:"category" json:"category"`
	DateAchieved     time.Time           `db:"date_achieved" json:"date_achieved"`
	EvidenceFile     *string             `db:"evidence_file" json:"evidence_file,omitempty"`
	Approval
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AchievementDetail joins the student and tenant columns used for scoping and display.
type AchievementDetail struct {
	Achievement
	StudentID     string  `db:"student_id" json:"student_id"`
	StudentUserID string  `db:"student_user_id" json:"student_user_id"`
	StudentName   string  `db:"student_name" json:"student_name"`
	DepartmentID  string  `db:"department_id" json:"department_id"`
	CollegeID     string  `db:"college_id" json:"college_id"`
	ApproverName  *string `db:"approver_name" json:"approver_name,omitempty"`
}

// AchievementFilter narrows achievement listings.
type AchievementFilter struct {
	ListFilter
	Category         AchievementCategory
	StudentProfileID string
}

// AchievementRequest is the create/update payload for achievements.
type AchievementRequest struct {
	Title        string              `json:"title" form:"title" validate:"required,max=200"`
	Description  string              `json:"description" form:"description" validate:"required"`
	Category     AchievementCategory `json:"category" form:"category" validate:"required"`
	DateAchieved string              `json:"date_achieved" form:"date_achieved" validate:"required,datetime=2006-01-02"`
}
