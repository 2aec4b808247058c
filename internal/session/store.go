package session

import (
	"context"

	"studybot/pkg/store"
)

// Store keeps one flow state plus transient payload per user. Implementations
// are last-write-wins; a lost stale write only degrades UX, never billing.
type Store interface {
	GetState(ctx context.Context, userID int64) (store.State, error)
	// SetState moves the user into a flow state. Entering any state other
	// than Idle discards the previous payload so no flow inherits leftover
	// data from an unrelated one.
	SetState(ctx context.Context, userID int64, state store.State) error
	UpdatePayload(ctx context.Context, userID int64, partial map[string]string) error
	GetPayload(ctx context.Context, userID int64) (map[string]string, error)
	// Clear resets to Idle and drops the payload. Idempotent.
	Clear(ctx context.Context, userID int64) error
}

func applyState(sess *store.Session, state store.State) {
	if state != store.StateIdle {
		sess.Payload = map[string]string{}
	}
	sess.State = state
}

func merge(sess *store.Session, partial map[string]string) {
	if sess.Payload == nil {
		sess.Payload = map[string]string{}
	}
	for k, v := range partial {
		sess.Payload[k] = v
	}
}

func emptySession(userID int64) *store.Session {
	return &store.Session{
		UserID:  userID,
		State:   store.StateIdle,
		Payload: map[string]string{},
	}
}
