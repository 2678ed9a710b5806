package subject

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("subject not found")

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id int) (Subject, error)
		// QueryByTeacher returns a teacher's own subjects, newest first.
		QueryByTeacher(ctx context.Context, teacherID int) ([]Subject, error)
		// QueryVisibleTo resolves student visibility: subjects open to all,
		// to the student's grade, or to the student's exact classroom.
		QueryVisibleTo(ctx context.Context, gradeLevel, classroom int) ([]Subject, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, Subject{
		Name:             ns.Name,
		TeacherID:        ns.TeacherID,
		VisibilityMode:   ns.VisibilityMode,
		TargetGradeLevel: ns.TargetGradeLevel,
		TargetClassroom:  ns.TargetClassroom,
	})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) QueryForTeacher(ctx context.Context, teacherID int) ([]Subject, error) {
	return svc.repo.QueryByTeacher(ctx, teacherID)
}

func (svc *Service) QueryForStudent(ctx context.Context, gradeLevel, classroom int) ([]Subject, error) {
	return svc.repo.QueryVisibleTo(ctx, gradeLevel, classroom)
}
