package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/announcement"
)

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) *announcementRepository {
	return &announcementRepository{db: db}
}

type announcementRow struct {
	ID        int       `db:"id"`
	SubjectID int       `db:"subject_id"`
	TeacherID int       `db:"teacher_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	q := `
		INSERT INTO announcement (subject_id, teacher_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		a.SubjectID, a.TeacherID, a.Content, a.CreatedAt.UTC(),
	).Scan(&a.ID)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo announcementRepository) QueryBySubject(ctx context.Context, subjectID int) ([]announcement.Announcement, error) {
	var rows []announcementRow
	q := `SELECT * FROM announcement WHERE subject_id = $1 ORDER BY id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying announcements by subject")
	}

	anns := make([]announcement.Announcement, 0, len(rows))
	for _, r := range rows {
		anns = append(anns, announcement.Announcement{
			ID:        r.ID,
			SubjectID: r.SubjectID,
			TeacherID: r.TeacherID,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return anns, nil
}
