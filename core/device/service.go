package device

import (
	"context"
	"time"
)

type (
	Repository interface {
		// UpsertToken stores the (user, token) pair, refreshing an existing row.
		UpsertToken(ctx context.Context, t Token) (Token, error)
		// ListTokens returns every registered token string, system-wide.
		ListTokens(ctx context.Context) ([]string, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Register(ctx context.Context, rt RegisterToken) (Token, error) {
	return svc.repo.UpsertToken(ctx, Token{
		UserID:    rt.UserID,
		Token:     rt.Token,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) ListTokens(ctx context.Context) ([]string, error) {
	return svc.repo.ListTokens(ctx)
}
