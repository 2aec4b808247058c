package completion

import (
	"context"
	"time"

	"studybot/internal/constant"
	"studybot/internal/pkg/logger"
)

// Notifier receives out-of-band operator alerts. Delivery is best-effort;
// failures are logged, never surfaced to the end user.
type Notifier interface {
	Alert(ctx context.Context, subject, body string) error
}

// Adapter wraps a completion Client with the retry and classification
// policy every caller shares: a hard per-attempt deadline, exponential
// backoff on transient failures, no retry once the upstream has rejected
// the content, and a single operator alert when the final failure is a
// quota exhaustion.
type Adapter struct {
	client   Client
	notifier Notifier
	log      logger.ILogger

	attemptTimeout time.Duration
	maxAttempts    int
	backoffBase    time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewAdapter(client Client, notifier Notifier, log logger.ILogger) *Adapter {
	return &Adapter{
		client:         client,
		notifier:       notifier,
		log:            log,
		attemptTimeout: constant.AttemptTimeout,
		maxAttempts:    constant.MaxAttempts,
		backoffBase:    constant.BackoffBase,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Complete runs one completion for the prompt against the trimmed history.
// The prompt is capped at the input limit and only the most recent history
// turns travel upstream. On failure the returned error is an *Error whose
// Class tells the caller how to phrase the apology.
func (a *Adapter) Complete(ctx context.Context, system string, history []Turn, prompt string) (string, error) {
	turns := prepareTurns(history, prompt)

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, a.attemptTimeout)
		text, err := a.client.Generate(attemptCtx, system, turns)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err

		class := Classify(err)
		a.log.Warn("completion", "attempt failed", map[string]interface{}{
			"attempt": attempt,
			"class":   string(class),
			"error":   err.Error(),
		})
		if class == ClassRejected {
			break
		}
		if attempt == a.maxAttempts {
			break
		}
		backoff := a.backoffBase << (attempt - 1)
		if err := a.sleep(ctx, backoff); err != nil {
			lastErr = err
			break
		}
	}

	final := Classify(lastErr)
	if final == ClassRateLimited && a.notifier != nil {
		if err := a.notifier.Alert(ctx, "completion rate limited",
			"upstream returned 429 after all attempts"); err != nil {
			a.log.Error("completion", "operator alert failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return "", &Error{Class: final, Err: lastErr}
}

// prepareTurns caps the prompt length and keeps only the tail of the
// history so the upstream payload stays bounded.
func prepareTurns(history []Turn, prompt string) []Turn {
	if runes := []rune(prompt); len(runes) > constant.MaxInputChars {
		prompt = string(runes[:constant.MaxInputChars])
	}
	if len(history) > constant.MaxHistoryTurns {
		history = history[len(history)-constant.MaxHistoryTurns:]
	}
	turns := make([]Turn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, Turn{Role: RoleUser, Text: prompt})
	return turns
}
