package submission

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("submission not found")
	ErrNoFiles  = errors.New("at least one file is required")
)

type (
	Repository interface {
		// GetSubmission fetches the student's submission for the assignment.
		GetSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error)
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		// ResetSubmission clears grade and feedback and refreshes the timestamp.
		ResetSubmission(ctx context.Context, id int) error
		// ReplaceFiles swaps the submission's file set for paths.
		ReplaceFiles(ctx context.Context, submissionID int, paths []string) error
		// QueryByAssignment returns submissions with student info and files.
		QueryByAssignment(ctx context.Context, assignmentID int) ([]Submission, error)
		GradeSubmission(ctx context.Context, id int, grade, feedback string) error
		QueryGradeRows(ctx context.Context, assignmentID int) ([]GradeRow, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit records the student's files for the assignment. A resubmission
// replaces the previous file set and clears any existing grade and feedback.
func (svc *Service) Submit(ctx context.Context, assignmentID, studentID int, paths []string) (Submission, error) {
	if len(paths) == 0 {
		return Submission{}, ErrNoFiles
	}

	sub, err := svc.repo.GetSubmission(ctx, assignmentID, studentID)
	switch errors.Cause(err) {
	case nil:
		if err := svc.repo.ResetSubmission(ctx, sub.ID); err != nil {
			return Submission{}, errors.Wrap(err, "resetting submission")
		}
	case ErrNotFound:
		sub, err = svc.repo.CreateSubmission(ctx, Submission{
			AssignmentID: assignmentID,
			StudentID:    studentID,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return Submission{}, errors.Wrap(err, "creating submission")
		}
	default:
		return Submission{}, errors.Wrap(err, "finding submission")
	}

	if err := svc.repo.ReplaceFiles(ctx, sub.ID, paths); err != nil {
		return Submission{}, errors.Wrap(err, "replacing submission files")
	}
	sub.FilePaths = paths
	return sub, nil
}

func (svc *Service) QueryByAssignment(ctx context.Context, assignmentID int) ([]Submission, error) {
	return svc.repo.QueryByAssignment(ctx, assignmentID)
}

// Grade records the teacher's grade and feedback. Grade values are free text;
// their shape is the grading mode's business, enforced client-side.
func (svc *Service) Grade(ctx context.Context, id int, grade, feedback string) error {
	return svc.repo.GradeSubmission(ctx, id, grade, feedback)
}

// ExportGradesCSV renders the assignment's grade sheet.
func (svc *Service) ExportGradesCSV(ctx context.Context, assignmentID int) ([]byte, error) {
	rows, err := svc.repo.QueryGradeRows(ctx, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying grade rows")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"name", "student_id", "grade_level", "classroom", "grade", "feedback"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.StudentName,
			r.StudentID,
			intOrEmpty(r.GradeLevel),
			intOrEmpty(r.Classroom),
			strOrEmpty(r.Grade),
			strOrEmpty(r.Feedback),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "writing csv")
	}
	return buf.Bytes(), nil
}

func intOrEmpty(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
