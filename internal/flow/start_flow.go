package flow

import (
	"context"
	"fmt"
	"strings"

	"studybot/internal/constant"
	"studybot/internal/dispatch"
	"studybot/internal/reply"
	"studybot/pkg/store"
)

// Start registers the user on first contact and routes them either into
// class selection or straight to the menu.
func (h *Handlers) Start(ctx context.Context, evt *dispatch.Event) error {
	user, err := h.users.Ensure(ctx, evt.Sender, evt.Username)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	if err := h.sessions.Clear(ctx, evt.Sender); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	if user.SelectedClass == constant.ClassNone {
		if err := h.sessions.SetState(ctx, evt.Sender, store.StateAwaitingClassSelection); err != nil {
			return err
		}
		return h.sender.SendMessage(ctx, evt.Sender, reply.WelcomeNew, classKeyboard())
	}

	return h.sender.SendMessage(ctx, evt.Sender, reply.WelcomeBack, mainMenuKeyboard())
}

func (h *Handlers) ChangeClass(ctx context.Context, evt *dispatch.Event) error {
	if _, err := h.users.Ensure(ctx, evt.Sender, evt.Username); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	if err := h.sessions.SetState(ctx, evt.Sender, store.StateAwaitingClassSelection); err != nil {
		return err
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.PickClass, classKeyboard())
}

// PickClass handles the class:<tag> action from the selection keyboard.
func (h *Handlers) PickClass(ctx context.Context, evt *dispatch.Event) error {
	tag := strings.TrimPrefix(evt.Action, constant.ActionClassPrefix)

	valid := false
	for _, known := range constant.ClassTags {
		if tag == known {
			valid = true
			break
		}
	}
	if !valid {
		h.ack(ctx, evt, reply.TryAgainLater)
		return nil
	}

	if err := h.users.SetClass(ctx, evt.Sender, tag); err != nil {
		return fmt.Errorf("set class: %w", err)
	}
	if err := h.sessions.Clear(ctx, evt.Sender); err != nil {
		return err
	}

	h.ack(ctx, evt, "")
	return h.sender.SendMessage(ctx, evt.Sender,
		fmt.Sprintf(reply.ClassConfirmed, plainClass(tag)), mainMenuKeyboard())
}
