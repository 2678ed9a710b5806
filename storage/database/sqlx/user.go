package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           int          `db:"id"`
	Name         string       `db:"name"`
	Email        string       `db:"email"`
	Role         string       `db:"role"`
	GradeLevel   *int         `db:"grade_level"`
	Classroom    *int         `db:"classroom"`
	StudentID    *string      `db:"student_id"`
	Subject      *string      `db:"subject"`
	AvatarPath   string       `db:"avatar_path"`
	PasswordHash []byte       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

func (repo userRepository) row(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		GradeLevel:   usr.GradeLevel,
		Classroom:    usr.Classroom,
		StudentID:    usr.StudentID,
		Subject:      usr.Subject,
		AvatarPath:   usr.AvatarPath,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}
}

func (repo userRepository) unrow(r userRow) user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		GradeLevel:   r.GradeLevel,
		Classroom:    r.Classroom,
		StudentID:    r.StudentID,
		Subject:      r.Subject,
		AvatarPath:   r.AvatarPath,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, name, email, studentID string, excludedUsers ...user.User) error {
	checks := []struct {
		column string
		value  string
		err    error
	}{
		{"name", name, user.ErrNameExists},
		{"email", email, user.ErrEmailExists},
		{"student_id", studentID, user.ErrStudentIDExists},
	}

	var excludedIDs []int
	for _, u := range excludedUsers {
		excludedIDs = append(excludedIDs, u.ID)
	}

	for _, c := range checks {
		if c.value == "" {
			continue
		}
		q := `SELECT EXISTS (SELECT 1 FROM "user" WHERE ` + c.column + ` = ?`
		args := []interface{}{c.value}
		if len(excludedIDs) > 0 {
			q += ` AND id NOT IN (?)`
			args = append(args, excludedIDs)
		}
		q += `)`

		q, inArgs, err := sqlx.In(q, args...)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), inArgs...); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if exists {
			return c.err
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := repo.row(usr)
	q := `
		INSERT INTO "user" (name, email, role, grade_level, classroom, student_id, subject,
		                    avatar_path, password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		r.Name, r.Email, r.Role, r.GradeLevel, r.Classroom, r.StudentID, r.Subject,
		r.AvatarPath, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	).Scan(&r.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unrow(r), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter) ([]user.User, error) {
	q := `SELECT * FROM "user"`
	var args []interface{}
	if filter != nil && filter.Role != "" {
		q += ` WHERE role = $1`
		args = append(args, filter.Role)
	}
	q += ` ORDER BY name`

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.unrow(r))
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var r userRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return repo.unrow(r), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var r userRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM "user" WHERE email = $1`, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return repo.unrow(r), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	r := repo.row(usr)
	q := `
		UPDATE "user"
		SET name = $1, email = $2, role = $3, grade_level = $4, classroom = $5,
		    student_id = $6, subject = $7, avatar_path = $8, password_hash = $9,
		    updated_at = $10, last_login = $11
		WHERE id = $12`
	if _, err := repo.db.ExecContext(
		ctx, q,
		r.Name, r.Email, r.Role, r.GradeLevel, r.Classroom,
		r.StudentID, r.Subject, r.AvatarPath, r.PasswordHash,
		r.UpdatedAt, r.LastLogin, r.ID,
	); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return repo.unrow(r), nil
}
