package store

// State identifies which multi-step flow (if any) a user is currently in.
// A user is either Idle or in exactly one flow at a time.
type State string

const (
	StateIdle                   State = "idle"
	StateAwaitingClassSelection State = "awaiting_class_selection"
	StateAwaitingSearchQuery    State = "awaiting_search_query"
	StateAwaitingAIPrompt       State = "awaiting_ai_prompt"
	StateAwaitingPaymentProof   State = "awaiting_payment_proof"
	StateAwaitingBroadcastBody  State = "awaiting_broadcast_body"
	StateAwaitingDeleteConfirm  State = "awaiting_delete_confirm"
)

// Session is the per-user flow state plus the transient payload the active
// flow has accumulated (conversation turns, pending ids). Payload values are
// strings; structured values are JSON-encoded by the flow that owns them.
type Session struct {
	UserID  int64             `json:"user_id"`
	State   State             `json:"state"`
	Payload map[string]string `json:"payload"`
}

// Payload keys shared between the flow handlers and the background worker.
const (
	PayloadHistory  = "history"
	PayloadDocID    = "doc_id"
	PayloadDocTitle = "doc_title"
)
