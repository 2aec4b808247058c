package notify

import "context"

// OperatorNotifier carries out-of-band signals to the operator side:
// service health alerts and payment submissions awaiting review. All
// delivery is best-effort; user-facing flows never block on it.
type OperatorNotifier interface {
	Alert(ctx context.Context, subject, body string) error
	PaymentSubmitted(ctx context.Context, userID int64, mediaID string) error
}

// NopNotifier drops everything. Used in tests and when the message bus is
// not configured.
type NopNotifier struct{}

func (NopNotifier) Alert(context.Context, string, string) error           { return nil }
func (NopNotifier) PaymentSubmitted(context.Context, int64, string) error { return nil }
