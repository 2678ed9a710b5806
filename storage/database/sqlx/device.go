package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/device"
)

type deviceRepository struct {
	db *sqlx.DB
}

var _ device.Repository = (*deviceRepository)(nil) // interface compliance check

func NewDeviceRepository(db *sqlx.DB) *deviceRepository {
	return &deviceRepository{db: db}
}

func (repo deviceRepository) UpsertToken(ctx context.Context, t device.Token) (device.Token, error) {
	q := `
		INSERT INTO device_token (user_id, token, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, token) DO UPDATE SET created_at = EXCLUDED.created_at
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, t.UserID, t.Token, t.CreatedAt.UTC()).Scan(&t.ID)
	if err != nil {
		return device.Token{}, errors.Wrap(err, "upserting device token")
	}
	return t, nil
}

func (repo deviceRepository) ListTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	if err := repo.db.SelectContext(ctx, &tokens, `SELECT DISTINCT token FROM device_token`); err != nil {
		return nil, errors.Wrap(err, "listing device tokens")
	}
	return tokens, nil
}
