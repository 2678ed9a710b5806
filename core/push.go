package core

import "context"

type (
	// PushNotification is the payload dispatched to registered devices.
	PushNotification struct {
		Title string
		Body  string
	}

	// PushService delivers a notification to the given device tokens.
	// Dispatch is fire-and-forget: implementations log failures and never
	// return them to the caller. An unconfigured implementation is a no-op.
	PushService interface {
		Send(ctx context.Context, n PushNotification, tokens ...string)
	}
)
