package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("assignment not found")

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id int) (Assignment, error)
		// QueryBySubject returns a subject's assignments, newest first.
		QueryBySubject(ctx context.Context, subjectID int) ([]Assignment, error)
		// QueryTeacherDashboard returns per-assignment submission counts for
		// every assignment in the teacher's subjects, newest first.
		QueryTeacherDashboard(ctx context.Context, teacherID int) ([]DashboardRow, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new assignment; worksheetPath is the stored upload path
// ("" when no worksheet was attached). Percent mode defaults the max score
// to 100; other modes carry none.
func (svc *Service) Create(ctx context.Context, na NewAssignment, worksheetPath string) (Assignment, error) {
	a := Assignment{
		SubjectID:     na.SubjectID,
		Title:         na.Title,
		Description:   na.Description,
		Deadline:      na.Deadline,
		GradingMode:   na.GradingMode,
		RequireScore:  na.RequireScore,
		WorksheetPath: worksheetPath,
		CreatedAt:     time.Now().UTC(),
	}
	if na.GradingMode == GradingPercent {
		max := 100
		if na.MaxScore != nil && *na.MaxScore > 0 {
			max = *na.MaxScore
		}
		a.MaxScore = &max
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *Service) QueryBySubject(ctx context.Context, subjectID int) ([]Assignment, error) {
	return svc.repo.QueryBySubject(ctx, subjectID)
}

func (svc *Service) TeacherDashboard(ctx context.Context, teacherID int) ([]DashboardRow, error) {
	return svc.repo.QueryTeacherDashboard(ctx, teacherID)
}
