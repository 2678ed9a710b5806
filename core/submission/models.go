package submission

import "time"

// Submission is a student's (re-)submission for an assignment. A student has
// at most one submission per assignment; resubmitting replaces the files and
// clears any grade and feedback.
type Submission struct {
	ID           int       `json:"id"`
	AssignmentID int       `json:"assignment_id"`
	StudentID    int       `json:"student_id"`
	Grade        *string   `json:"grade"`
	Feedback     *string   `json:"feedback"`
	CreatedAt    time.Time `json:"created_at"` // UTC

	// joined student info, filled on teacher listings
	StudentName string `json:"student_name,omitempty"`
	GradeLevel  *int   `json:"grade_level,omitempty"`
	Classroom   *int   `json:"classroom,omitempty"`

	FilePaths []string `json:"-"`
	FileURLs  []string `json:"files"`
}

// GradeRow is one line of the grades CSV export.
type GradeRow struct {
	StudentName string
	StudentID   string
	GradeLevel  *int
	Classroom   *int
	Grade       *string
	Feedback    *string
}
