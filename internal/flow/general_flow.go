package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studybot/internal/dispatch"
	"studybot/internal/entity"
	"studybot/internal/quota"
	"studybot/internal/reply"
	"studybot/pkg/store"
)

// Stop is the universal escape hatch: it cancels whatever flow the user is
// in and lands them back on the menu.
func (h *Handlers) Stop(ctx context.Context, evt *dispatch.Event) error {
	state, err := h.sessions.GetState(ctx, evt.Sender)
	if err != nil {
		return err
	}
	if err := h.sessions.Clear(ctx, evt.Sender); err != nil {
		return err
	}

	if state == store.StateIdle {
		return h.sender.SendMessage(ctx, evt.Sender, reply.StopNothing, mainMenuKeyboard())
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.BackToMenu, mainMenuKeyboard())
}

func (h *Handlers) Help(ctx context.Context, evt *dispatch.Event) error {
	return h.sender.SendMessage(ctx, evt.Sender, reply.Help, mainMenuKeyboard())
}

// Stats shows the user their own balances, applying any due resets first
// so the numbers are never stale.
func (h *Handlers) Stats(ctx context.Context, evt *dispatch.Event) error {
	user, err := h.ledger.MaybeReset(ctx, evt.Sender)
	if errors.Is(err, quota.ErrUserNotFound) {
		return h.sender.SendMessage(ctx, evt.Sender, reply.RegisterFirst, nil)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if user.Tier() == entity.TierPremium {
		expiry := "unknown"
		if user.PremiumExpiresAt != nil {
			expiry = user.PremiumExpiresAt.Format("January 2, 2006 at 15:04 UTC")
		}
		return h.sender.SendMessage(ctx, evt.Sender,
			fmt.Sprintf(reply.StatsPremium, plainClass(user.SelectedClass),
				user.AIRemaining, user.DownloadsRemaining, expiry), nil)
	}

	return h.sender.SendMessage(ctx, evt.Sender,
		fmt.Sprintf(reply.StatsFree, plainClass(user.SelectedClass),
			user.AIRemaining, user.DownloadsRemaining), nil)
}

// Fallback catches anything no rule claimed. Unknown actions (stale or
// decorative buttons) still get their spinner answered; plain text gets
// a pass through the small-talk triggers before the unknown-message
// reply.
func (h *Handlers) Fallback(ctx context.Context, evt *dispatch.Event) error {
	if evt.Kind == dispatch.KindAction {
		h.ack(ctx, evt, "")
		return nil
	}
	if evt.Kind == dispatch.KindText {
		if text, ok := smallTalk(evt.Text); ok {
			return h.sender.SendMessage(ctx, evt.Sender, text, mainMenuKeyboard())
		}
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.UnknownMessage, mainMenuKeyboard())
}

var aboutTriggers = []string{
	"who are you", "who made you", "developer", "about you", "about the bot",
	"who created", "creator",
}

func smallTalk(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, trigger := range aboutTriggers {
		if strings.Contains(t, trigger) {
			return reply.AboutBot, true
		}
	}
	for _, word := range []string{"hello", "hi", "hey", "namaste"} {
		if strings.Contains(t, word) {
			return reply.Greeting, true
		}
	}
	for _, word := range []string{"thanks", "thank you", "thx"} {
		if strings.Contains(t, word) {
			return reply.ThanksReply, true
		}
	}
	return "", false
}
