package cache

import "context"

// ResponseCache stores externally-generated answers keyed by normalized
// prompt. It is a cost-saving layer only: implementations must treat a
// failing Get as a miss and swallow Set failures, never surfacing either to
// the caller's flow.
type ResponseCache interface {
	Get(ctx context.Context, prompt string) (string, bool)
	Set(ctx context.Context, prompt, text string)
}
