package dispatch

// Kind separates the three inbound shapes the router understands.
type Kind string

const (
	KindText   Kind = "text"
	KindAction Kind = "action"
	KindMedia  Kind = "media"
)

// Event is one normalized inbound update. Exactly one of Text, Action or
// MediaID is meaningful depending on Kind; the rest are carrier fields the
// handlers need to reply or forward.
type Event struct {
	// ID is stable across redeliveries of the same update and keys the
	// debit deduplication markers.
	ID string

	Sender   int64
	Username *string
	Kind     Kind

	Text       string
	Action     string
	CallbackID string
	MediaID    string
	MessageID  int
}
