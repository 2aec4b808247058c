package transport

import "context"

// InlineButton is a tappable button that fires an action payload back at
// the dispatcher.
type InlineButton struct {
	Text string
	Data string
}

// Keyboard describes the markup attached to an outgoing message. Inline
// rows and persistent reply rows are mutually exclusive on the wire; Inline
// wins when both are set.
type Keyboard struct {
	Inline      [][]InlineButton
	Reply       [][]string
	RemoveReply bool
}

// Sender delivers messages back to the chat platform. Implementations are
// synchronous; callers that must not block wrap them in the executor.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error
	ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
