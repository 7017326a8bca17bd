package application

import "context"

// Notifier pushes an alert for a surfaced error to somewhere outside the app,
// such as a phone.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}
