package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/darasa/core"
)

// Grading modes.
const (
	GradingCheck   = "check"   // done / not done
	GradingScore10 = "score10" // 0-10
	GradingPercent = "percent" // 0-max_score, default 100
)

type Assignment struct {
	ID            int       `json:"id"`
	SubjectID     int       `json:"subject_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Deadline      string    `json:"deadline"` // YYYY-MM-DD, empty when open-ended
	GradingMode   string    `json:"grading_mode"`
	MaxScore      *int      `json:"max_score"` // percent mode only
	RequireScore  bool      `json:"require_score"`
	WorksheetPath string    `json:"-"`
	WorksheetURL  string    `json:"worksheet_url"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

// NewAssignment contains information needed to create an Assignment.
// The worksheet file itself travels through the upload store; only its
// stored path arrives here.
type NewAssignment struct {
	SubjectID    int    `json:"subject_id" validate:"required,gt=0"`
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	Deadline     string `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	GradingMode  string `json:"grading_mode" validate:"omitempty,oneof=check score10 percent"`
	MaxScore     *int   `json:"max_score"`
	RequireScore bool   `json:"require_score"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	if na.GradingMode == "" {
		na.GradingMode = GradingCheck
	}
	return validate.Struct(na)
}

// DashboardRow is one line of the teacher dashboard: an assignment and how
// many submissions it has received.
type DashboardRow struct {
	AssignmentID   int    `json:"assignment_id"`
	Title          string `json:"title"`
	SubmittedCount int    `json:"submitted_count"`
}
