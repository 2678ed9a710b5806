package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/subject"
)

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

type subjectRow struct {
	ID               int    `db:"id"`
	Name             string `db:"name"`
	TeacherID        int    `db:"teacher_id"`
	VisibilityMode   string `db:"visibility_mode"`
	TargetGradeLevel *int   `db:"target_grade_level"`
	TargetClassroom  *int   `db:"target_classroom"`
}

func (repo subjectRepository) unrow(r subjectRow) subject.Subject {
	return subject.Subject{
		ID:               r.ID,
		Name:             r.Name,
		TeacherID:        r.TeacherID,
		VisibilityMode:   r.VisibilityMode,
		TargetGradeLevel: r.TargetGradeLevel,
		TargetClassroom:  r.TargetClassroom,
	}
}

func (repo subjectRepository) unrowSlice(rows []subjectRow) []subject.Subject {
	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, repo.unrow(r))
	}
	return subjects
}

func (repo subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	q := `
		INSERT INTO subject (name, teacher_id, visibility_mode, target_grade_level, target_classroom)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		s.Name, s.TeacherID, s.VisibilityMode, s.TargetGradeLevel, s.TargetClassroom,
	).Scan(&s.ID)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo subjectRepository) GetSubjectByID(ctx context.Context, id int) (subject.Subject, error) {
	var r subjectRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM subject WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return subject.Subject{}, subject.ErrNotFound
		}
		return subject.Subject{}, errors.Wrap(err, "finding subject by ID")
	}
	return repo.unrow(r), nil
}

func (repo subjectRepository) QueryByTeacher(ctx context.Context, teacherID int) ([]subject.Subject, error) {
	var rows []subjectRow
	q := `SELECT * FROM subject WHERE teacher_id = $1 ORDER BY id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying subjects by teacher")
	}
	return repo.unrowSlice(rows), nil
}

func (repo subjectRepository) QueryVisibleTo(ctx context.Context, gradeLevel, classroom int) ([]subject.Subject, error) {
	var rows []subjectRow
	q := `
		SELECT * FROM subject
		WHERE visibility_mode = 'all'
		   OR (visibility_mode = 'grade' AND target_grade_level = $1)
		   OR (visibility_mode = 'classroom' AND target_grade_level = $1 AND target_classroom = $2)
		ORDER BY id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, gradeLevel, classroom); err != nil {
		return nil, errors.Wrap(err, "querying visible subjects")
	}
	return repo.unrowSlice(rows), nil
}
