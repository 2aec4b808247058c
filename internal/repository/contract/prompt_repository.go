package contract

import "context"

type PromptRepository interface {
	// SystemPromptFor resolves class -> "default" -> built-in fallback.
	// It never fails the caller: lookup errors degrade to the fallback.
	SystemPromptFor(ctx context.Context, classTag string) string
}
