package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/assignment"
)

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

type assignmentRow struct {
	ID            int       `db:"id"`
	SubjectID     int       `db:"subject_id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	Deadline      string    `db:"deadline"`
	GradingMode   string    `db:"grading_mode"`
	MaxScore      *int      `db:"max_score"`
	RequireScore  bool      `db:"require_score"`
	WorksheetPath string    `db:"worksheet_path"`
	CreatedAt     time.Time `db:"created_at"`
}

func (repo assignmentRepository) unrow(r assignmentRow) assignment.Assignment {
	return assignment.Assignment{
		ID:            r.ID,
		SubjectID:     r.SubjectID,
		Title:         r.Title,
		Description:   r.Description,
		Deadline:      r.Deadline,
		GradingMode:   r.GradingMode,
		MaxScore:      r.MaxScore,
		RequireScore:  r.RequireScore,
		WorksheetPath: r.WorksheetPath,
		CreatedAt:     r.CreatedAt,
	}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	q := `
		INSERT INTO assignment (subject_id, title, description, deadline, grading_mode,
		                        max_score, require_score, worksheet_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		a.SubjectID, a.Title, a.Description, a.Deadline, a.GradingMode,
		a.MaxScore, a.RequireScore, a.WorksheetPath, a.CreatedAt.UTC(),
	).Scan(&a.ID)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo assignmentRepository) GetAssignmentByID(ctx context.Context, id int) (assignment.Assignment, error) {
	var r assignmentRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM assignment WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	return repo.unrow(r), nil
}

func (repo assignmentRepository) QueryBySubject(ctx context.Context, subjectID int) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	q := `SELECT * FROM assignment WHERE subject_id = $1 ORDER BY id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying assignments by subject")
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, repo.unrow(r))
	}
	return assignments, nil
}

func (repo assignmentRepository) QueryTeacherDashboard(ctx context.Context, teacherID int) ([]assignment.DashboardRow, error) {
	q := `
		SELECT a.id AS assignment_id, a.title, COUNT(s.id) AS submitted_count
		FROM assignment a
		JOIN subject sub ON sub.id = a.subject_id
		LEFT JOIN submission s ON s.assignment_id = a.id
		WHERE sub.teacher_id = $1
		GROUP BY a.id, a.title
		ORDER BY a.id DESC`

	var rows []struct {
		AssignmentID   int    `db:"assignment_id"`
		Title          string `db:"title"`
		SubmittedCount int    `db:"submitted_count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying teacher dashboard")
	}

	dash := make([]assignment.DashboardRow, 0, len(rows))
	for _, r := range rows {
		dash = append(dash, assignment.DashboardRow{
			AssignmentID:   r.AssignmentID,
			Title:          r.Title,
			SubmittedCount: r.SubmittedCount,
		})
	}
	return dash, nil
}
