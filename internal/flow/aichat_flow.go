package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studybot/internal/constant"
	"studybot/internal/dispatch"
	"studybot/internal/quota"
	"studybot/internal/reply"
	"studybot/internal/worker"
	"studybot/pkg/completion"
	"studybot/pkg/store"
)

// AIChatEntry opens the conversation state. A user with no queries left is
// refused at the door and stays idle, so the refusal costs nothing.
func (h *Handlers) AIChatEntry(ctx context.Context, evt *dispatch.Event) error {
	user, err := h.ledger.MaybeReset(ctx, evt.Sender)
	if errors.Is(err, quota.ErrUserNotFound) {
		return h.sender.SendMessage(ctx, evt.Sender, reply.RegisterFirst, nil)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if user.AIRemaining <= 0 {
		return h.sender.SendMessage(ctx, evt.Sender, reply.AIExhausted, nil)
	}

	if err := h.sessions.SetState(ctx, evt.Sender, store.StateAwaitingAIPrompt); err != nil {
		return err
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.AIChatEntered, nil)
}

// AIPrompt hands the prompt to the background executor and returns
// immediately so the dispatch path never blocks on the model.
func (h *Handlers) AIPrompt(ctx context.Context, evt *dispatch.Event) error {
	prompt := strings.TrimSpace(evt.Text)
	if prompt == "" {
		return nil
	}

	err := h.exec.Schedule(ctx, &worker.Job{
		ID:     evt.ID,
		UserID: evt.Sender,
		Name:   JobProcessPrompt,
		Args: map[string]string{
			"prompt":   prompt,
			"event_id": evt.ID,
		},
	})
	if errors.Is(err, worker.ErrBusy) {
		return h.sender.SendMessage(ctx, evt.Sender, reply.StillWorking, nil)
	}
	if err != nil {
		return fmt.Errorf("schedule prompt: %w", err)
	}

	return h.sender.SendMessage(ctx, evt.Sender, reply.AIThinking, nil)
}

// ProcessPrompt is the background job behind AIPrompt. Cache hits answer
// for free; a miss costs one debit before the upstream call, keyed by the
// event id so a redelivered update cannot double-spend.
func (h *Handlers) ProcessPrompt(ctx context.Context, job *worker.Job) error {
	userID := job.UserID
	prompt := job.Args["prompt"]

	payload, err := h.sessions.GetPayload(ctx, userID)
	if err != nil {
		h.log.Warn("flow", "failed to load conversation history", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		payload = map[string]string{}
	}
	history := decodeHistory(payload[store.PayloadHistory])

	if cached, hit := h.cache.Get(ctx, prompt); hit {
		h.log.Info("flow", "ai cache hit", map[string]interface{}{"user_id": userID})
		h.rememberTurns(ctx, userID, history, prompt, cached)
		return h.sender.SendMessage(ctx, userID, cached+reply.AICachedSuffix, nil)
	}

	ok, err := h.ledger.TryDebit(ctx, userID, quota.ResourceAI, job.Args["event_id"])
	if err != nil {
		return fmt.Errorf("debit ai query: %w", err)
	}
	if !ok {
		if err := h.sessions.Clear(ctx, userID); err != nil {
			h.log.Warn("flow", "failed to clear session", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		return h.sender.SendMessage(ctx, userID, reply.AIExhausted, nil)
	}

	user, err := h.users.Ensure(ctx, userID, nil)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	system := h.prompts.SystemPromptFor(ctx, user.SelectedClass)

	answer, err := h.adapter.Complete(ctx, system, history, prompt)
	if err != nil {
		h.log.Error("flow", "completion failed", map[string]interface{}{
			"user_id": userID,
			"class":   string(completion.ClassOf(err)),
			"error":   err.Error(),
		})
		return h.sender.SendMessage(ctx, userID, apologyFor(completion.ClassOf(err)), nil)
	}

	h.cache.Set(ctx, prompt, answer)
	h.rememberTurns(ctx, userID, history, prompt, answer)
	return h.sender.SendMessage(ctx, userID, answer, nil)
}

func apologyFor(class completion.Classification) string {
	switch class {
	case completion.ClassRejected:
		return reply.AIRejected
	case completion.ClassRateLimited:
		return reply.AIRateLimited
	default:
		return reply.AIUnavailable
	}
}

// rememberTurns appends the exchange to the session payload, keeping only
// the recent tail. Best-effort: a failed write degrades context, nothing
// else.
func (h *Handlers) rememberTurns(ctx context.Context, userID int64, history []completion.Turn, prompt, answer string) {
	history = append(history,
		completion.Turn{Role: completion.RoleUser, Text: prompt},
		completion.Turn{Role: completion.RoleModel, Text: answer},
	)
	if max := 2 * constant.MaxHistoryTurns; len(history) > max {
		history = history[len(history)-max:]
	}
	err := h.sessions.UpdatePayload(ctx, userID, map[string]string{
		store.PayloadHistory: encodeHistory(history),
	})
	if err != nil {
		h.log.Warn("flow", "failed to persist conversation history", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
