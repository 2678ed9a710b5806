package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/submission"
)

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

type submissionRow struct {
	ID           int       `db:"id"`
	AssignmentID int       `db:"assignment_id"`
	StudentID    int       `db:"student_id"`
	Grade        *string   `db:"grade"`
	Feedback     *string   `db:"feedback"`
	CreatedAt    time.Time `db:"created_at"`

	StudentName *string `db:"student_name"`
	GradeLevel  *int    `db:"grade_level"`
	Classroom   *int    `db:"classroom"`
}

func (repo submissionRepository) unrow(r submissionRow) submission.Submission {
	s := submission.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		Grade:        r.Grade,
		Feedback:     r.Feedback,
		CreatedAt:    r.CreatedAt,
		GradeLevel:   r.GradeLevel,
		Classroom:    r.Classroom,
	}
	if r.StudentName != nil {
		s.StudentName = *r.StudentName
	}
	return s
}

func (repo submissionRepository) GetSubmission(ctx context.Context, assignmentID, studentID int) (submission.Submission, error) {
	var r submissionRow
	q := `SELECT * FROM submission WHERE assignment_id = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &r, q, assignmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, errors.Wrap(err, "finding submission")
	}
	return repo.unrow(r), nil
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	q := `
		INSERT INTO submission (assignment_id, student_id, grade, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		s.AssignmentID, s.StudentID, s.Grade, s.Feedback, s.CreatedAt.UTC(),
	).Scan(&s.ID)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo submissionRepository) ResetSubmission(ctx context.Context, id int) error {
	q := `UPDATE submission SET grade = NULL, feedback = NULL, created_at = $1 WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, q, time.Now().UTC(), id); err != nil {
		return errors.Wrap(err, "resetting submission")
	}
	return nil
}

// ReplaceFiles swaps the submission's file set atomically.
func (repo submissionRepository) ReplaceFiles(ctx context.Context, submissionID int, paths []string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM submission_file WHERE submission_id = $1`, submissionID); err != nil {
		return errors.Wrap(err, "deleting submission files")
	}
	for _, p := range paths {
		q := `INSERT INTO submission_file (submission_id, file_path) VALUES ($1, $2)`
		if _, err = tx.ExecContext(ctx, q, submissionID, p); err != nil {
			return errors.Wrap(err, "inserting submission file")
		}
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo submissionRepository) QueryByAssignment(ctx context.Context, assignmentID int) ([]submission.Submission, error) {
	var rows []submissionRow
	q := `
		SELECT s.id, s.assignment_id, s.student_id, s.grade, s.feedback, s.created_at,
		       u.name AS student_name, u.grade_level, u.classroom
		FROM submission s
		JOIN "user" u ON u.id = s.student_id
		WHERE s.assignment_id = $1
		ORDER BY s.id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying submissions by assignment")
	}

	subs := make([]submission.Submission, 0, len(rows))
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, repo.unrow(r))
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return subs, nil
	}

	// attach files in one pass
	fq, args, err := sqlx.In(`SELECT submission_id, file_path FROM submission_file WHERE submission_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying submission files")
	}
	var files []struct {
		SubmissionID int    `db:"submission_id"`
		FilePath     string `db:"file_path"`
	}
	if err = repo.db.SelectContext(ctx, &files, repo.db.Rebind(fq), args...); err != nil {
		return nil, errors.Wrap(err, "querying submission files")
	}
	bySubmission := make(map[int][]string, len(subs))
	for _, f := range files {
		bySubmission[f.SubmissionID] = append(bySubmission[f.SubmissionID], f.FilePath)
	}
	for i := range subs {
		subs[i].FilePaths = bySubmission[subs[i].ID]
	}
	return subs, nil
}

func (repo submissionRepository) GradeSubmission(ctx context.Context, id int, grade, feedback string) error {
	q := `UPDATE submission SET grade = $1, feedback = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, q, grade, feedback, id)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return submission.ErrNotFound
	}
	return nil
}

func (repo submissionRepository) QueryGradeRows(ctx context.Context, assignmentID int) ([]submission.GradeRow, error) {
	q := `
		SELECT u.name AS student_name, COALESCE(u.student_id, '') AS student_no,
		       u.grade_level, u.classroom, s.grade, s.feedback
		FROM submission s
		JOIN "user" u ON u.id = s.student_id
		WHERE s.assignment_id = $1
		ORDER BY u.name`

	var rows []struct {
		StudentName string  `db:"student_name"`
		StudentNo   string  `db:"student_no"`
		GradeLevel  *int    `db:"grade_level"`
		Classroom   *int    `db:"classroom"`
		Grade       *string `db:"grade"`
		Feedback    *string `db:"feedback"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying grade rows")
	}

	grades := make([]submission.GradeRow, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, submission.GradeRow{
			StudentName: r.StudentName,
			StudentID:   r.StudentNo,
			GradeLevel:  r.GradeLevel,
			Classroom:   r.Classroom,
			Grade:       r.Grade,
			Feedback:    r.Feedback,
		})
	}
	return grades, nil
}
