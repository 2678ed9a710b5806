package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/chat"
)

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *sqlx.DB) *chatRepository {
	return &chatRepository{db: db}
}

type messageRow struct {
	ID         int       `db:"id"`
	SenderID   int       `db:"sender_id"`
	ReceiverID int       `db:"receiver_id"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

func (repo chatRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	q := `
		INSERT INTO message (sender_id, receiver_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		msg.SenderID, msg.ReceiverID, msg.Content, msg.CreatedAt.UTC(),
	).Scan(&msg.ID)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo chatRepository) QueryThread(ctx context.Context, user1, user2 int) ([]chat.Message, error) {
	var rows []messageRow
	q := `
		SELECT * FROM message
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q, user1, user2); err != nil {
		return nil, errors.Wrap(err, "querying message thread")
	}

	msgs := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, chat.Message{
			ID:         r.ID,
			SenderID:   r.SenderID,
			ReceiverID: r.ReceiverID,
			Content:    r.Content,
			CreatedAt:  r.CreatedAt,
		})
	}
	return msgs, nil
}
