package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/hub"
)

var ErrNotFound = errors.New("message not found")

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryThread returns all messages between the two users, oldest first.
		QueryThread(ctx context.Context, user1, user2 int) ([]Message, error)
	}

	Service struct {
		repo Repository
		hub  *hub.Hub
	}
)

func NewService(repo Repository, h *hub.Hub) *Service {
	return &Service{repo: repo, hub: h}
}

// Send persists the message, then broadcasts the stored record (with its
// assigned id and timestamp) to every open connection. A failed persist
// surfaces to the caller only; nothing is broadcast.
func (svc *Service) Send(ctx context.Context, nm NewMessage) (Message, error) {
	msg, err := svc.repo.CreateMessage(ctx, Message{
		SenderID:   nm.SenderID,
		ReceiverID: nm.ReceiverID,
		Content:    nm.Content,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "persisting message")
	}

	svc.hub.RelayChat(msg)
	return msg, nil
}

func (svc *Service) Thread(ctx context.Context, user1, user2 int) ([]Message, error) {
	return svc.repo.QueryThread(ctx, user1, user2)
}
