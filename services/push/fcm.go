package pushsvc

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/mwalimu/darasa/core"
)

// FCM caps a single multicast at 500 tokens.
const multicastLimit = 500

type fcmService struct {
	client *messaging.Client
	logger core.Logger
}

var _ core.PushService = (*fcmService)(nil)

// NewFCMService wires Firebase Cloud Messaging. It returns a nil service when
// no credentials file is configured; callers treat that as "push disabled".
func NewFCMService(ctx context.Context, conf *core.Config, logger core.Logger) (core.PushService, error) {
	if conf.Push.CredentialsFile == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(
		ctx,
		&firebase.Config{ProjectID: conf.Push.ProjectID},
		option.WithCredentialsFile(conf.Push.CredentialsFile),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing messaging client: %w", err)
	}
	return &fcmService{client: client, logger: logger}, nil
}

// Send multicasts the notification to all tokens. Failures are logged and
// swallowed; callers never see a delivery error.
func (svc fcmService) Send(ctx context.Context, n core.PushNotification, tokens ...string) {
	for start := 0; start < len(tokens); start += multicastLimit {
		end := start + multicastLimit
		if end > len(tokens) {
			end = len(tokens)
		}
		svc.multicast(ctx, n, tokens[start:end])
	}
}

func (svc fcmService) multicast(ctx context.Context, n core.PushNotification, tokens []string) {
	res, err := svc.client.SendMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending push: %v", err), err)
		return
	}
	if res.FailureCount > 0 {
		svc.logger.Warn(fmt.Sprintf("push delivered to %d/%d devices", res.SuccessCount, len(tokens)))
	}
}
