package announcement

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/hub"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		// QueryBySubject returns a subject's announcements, newest first.
		QueryBySubject(ctx context.Context, subjectID int) ([]Announcement, error)
	}

	// TokenLister feeds the push fan-out; in production this is the device
	// token store.
	TokenLister interface {
		ListTokens(ctx context.Context) ([]string, error)
	}

	Service struct {
		repo    Repository
		hub     *hub.Hub
		tokens  TokenLister
		pushSvc core.PushService
		logger  core.Logger
	}
)

func NewService(repo Repository, h *hub.Hub, tokens TokenLister, pushSvc core.PushService, logger core.Logger) *Service {
	return &Service{repo: repo, hub: h, tokens: tokens, pushSvc: pushSvc, logger: logger}
}

// Create persists the announcement, broadcasts it to every open connection
// and dispatches one push to every registered device token system-wide.
// The push is best effort and never fails the request; a failed persist
// surfaces to the caller only, with nothing broadcast.
func (svc *Service) Create(ctx context.Context, na NewAnnouncement) (Announcement, error) {
	a, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		SubjectID: na.SubjectID,
		TeacherID: na.TeacherID,
		Content:   na.Content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Announcement{}, errors.Wrap(err, "persisting announcement")
	}

	svc.hub.RelayAnnouncement(a)
	svc.dispatchPush(ctx, a)
	return a, nil
}

func (svc *Service) QueryBySubject(ctx context.Context, subjectID int) ([]Announcement, error) {
	return svc.repo.QueryBySubject(ctx, subjectID)
}

// dispatchPush sends at most one multicast per announcement. Skipped when no
// push service is configured or no tokens are registered; lookup failures are
// logged and swallowed.
func (svc *Service) dispatchPush(ctx context.Context, a Announcement) {
	if svc.pushSvc == nil {
		return
	}
	tokens, err := svc.tokens.ListTokens(ctx)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("listing device tokens: %v", err), err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	svc.pushSvc.Send(ctx, core.PushNotification{Title: "New announcement", Body: a.Content}, tokens...)
}
