package flow

import (
	"context"
	"errors"
	"fmt"

	"studybot/internal/dispatch"
	"studybot/internal/entity"
	"studybot/internal/quota"
	"studybot/internal/reply"
	"studybot/pkg/store"
)

// UpgradeEntry starts the payment flow, or short-circuits for users whose
// plan is already active.
func (h *Handlers) UpgradeEntry(ctx context.Context, evt *dispatch.Event) error {
	user, err := h.ledger.MaybeReset(ctx, evt.Sender)
	if errors.Is(err, quota.ErrUserNotFound) {
		return h.sender.SendMessage(ctx, evt.Sender, reply.RegisterFirst, nil)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if user.Tier() == entity.TierPremium {
		return h.sender.SendMessage(ctx, evt.Sender,
			fmt.Sprintf(reply.AlreadyPremium, expiryText(user)), nil)
	}

	if err := h.sessions.SetState(ctx, evt.Sender, store.StateAwaitingPaymentProof); err != nil {
		return err
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.UpgradePitch, nil)
}

// PaymentProof forwards the screenshot to the operator, records the
// submission on the alert bus, and releases the user from the flow. The
// bus publish is best-effort; the forward is the payment of record.
func (h *Handlers) PaymentProof(ctx context.Context, evt *dispatch.Event) error {
	if err := h.sender.ForwardMessage(ctx, h.operatorID, evt.Sender, evt.MessageID); err != nil {
		return fmt.Errorf("forward proof: %w", err)
	}
	if err := h.sender.SendMessage(ctx, h.operatorID,
		fmt.Sprintf(reply.PaymentForward, evt.Sender), nil); err != nil {
		h.log.Warn("flow", "failed to annotate forwarded proof", map[string]interface{}{
			"user_id": evt.Sender,
			"error":   err.Error(),
		})
	}

	if err := h.notifier.PaymentSubmitted(ctx, evt.Sender, evt.MediaID); err != nil {
		h.log.Warn("flow", "failed to publish payment event", map[string]interface{}{
			"user_id": evt.Sender,
			"error":   err.Error(),
		})
	}

	if err := h.sessions.Clear(ctx, evt.Sender); err != nil {
		return err
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.PaymentReceived, mainMenuKeyboard())
}

// PaymentNotPhoto nudges users who send text while a screenshot is
// expected. They stay in the flow.
func (h *Handlers) PaymentNotPhoto(ctx context.Context, evt *dispatch.Event) error {
	return h.sender.SendMessage(ctx, evt.Sender, reply.PaymentNeedPhoto, nil)
}

// PaymentStatus reports the user's plan.
func (h *Handlers) PaymentStatus(ctx context.Context, evt *dispatch.Event) error {
	user, err := h.ledger.MaybeReset(ctx, evt.Sender)
	if errors.Is(err, quota.ErrUserNotFound) {
		return h.sender.SendMessage(ctx, evt.Sender, reply.RegisterFirst, nil)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if user.Tier() == entity.TierPremium {
		return h.sender.SendMessage(ctx, evt.Sender,
			fmt.Sprintf(reply.AlreadyPremium, expiryText(user)), nil)
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.PaymentStatusFree, nil)
}

func expiryText(user *entity.User) string {
	if user.PremiumExpiresAt == nil {
		return "unknown"
	}
	return user.PremiumExpiresAt.Format("January 2, 2006 at 15:04 UTC")
}
