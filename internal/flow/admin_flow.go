package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"studybot/internal/constant"
	"studybot/internal/dispatch"
	"studybot/internal/reply"
	"studybot/internal/repository/specification"
	"studybot/internal/transport"
	"studybot/pkg/store"
)

// UpgradeUser grants premium by hand after the operator verified a
// payment. The user is told right away; a failed notification does not
// undo the grant.
func (h *Handlers) UpgradeUser(ctx context.Context, evt *dispatch.Event) error {
	targetID, ok := parseUserID(dispatch.Args(evt.Text))
	if !ok {
		return h.sender.SendMessage(ctx, evt.Sender, reply.UsageUpgradeUser, nil)
	}

	target, err := h.users.FindOne(ctx, specification.ByUserID{ID: targetID})
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if target == nil {
		return h.sender.SendMessage(ctx, evt.Sender, reply.UserNotFound, nil)
	}

	if _, err := h.ledger.GrantPremium(ctx, targetID); err != nil {
		return fmt.Errorf("grant premium: %w", err)
	}

	if err := h.sender.SendMessage(ctx, targetID, reply.PremiumGranted, nil); err != nil {
		h.log.Warn("flow", "could not notify upgraded user", map[string]interface{}{
			"user_id": targetID,
			"error":   err.Error(),
		})
	}
	return h.sender.SendMessage(ctx, evt.Sender, fmt.Sprintf(reply.UpgradedUser, targetID), nil)
}

func (h *Handlers) EndPlan(ctx context.Context, evt *dispatch.Event) error {
	targetID, ok := parseUserID(dispatch.Args(evt.Text))
	if !ok {
		return h.sender.SendMessage(ctx, evt.Sender, reply.UsageEndPlan, nil)
	}

	target, err := h.users.FindOne(ctx, specification.ByUserID{ID: targetID})
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if target == nil {
		return h.sender.SendMessage(ctx, evt.Sender, reply.UserNotFound, nil)
	}

	if err := h.ledger.RevertToFree(ctx, targetID); err != nil {
		return fmt.Errorf("revert to free: %w", err)
	}

	if err := h.sender.SendMessage(ctx, targetID, reply.PremiumEnded, nil); err != nil {
		h.log.Warn("flow", "could not notify downgraded user", map[string]interface{}{
			"user_id": targetID,
			"error":   err.Error(),
		})
	}
	return h.sender.SendMessage(ctx, evt.Sender, fmt.Sprintf(reply.EndedPlan, targetID), nil)
}

func (h *Handlers) ExtendPlan(ctx context.Context, evt *dispatch.Event) error {
	fields := strings.Fields(dispatch.Args(evt.Text))
	if len(fields) != 2 {
		return h.sender.SendMessage(ctx, evt.Sender, reply.UsageExtendPlan, nil)
	}
	targetID, ok := parseUserID(fields[0])
	days, err := strconv.Atoi(fields[1])
	if !ok || err != nil || days < 1 {
		return h.sender.SendMessage(ctx, evt.Sender, reply.UsageExtendPlan, nil)
	}

	if err := h.ledger.ExtendPremium(ctx, targetID, days); err != nil {
		return fmt.Errorf("extend premium: %w", err)
	}
	return h.sender.SendMessage(ctx, evt.Sender, fmt.Sprintf(reply.ExtendedPlan, targetID, days), nil)
}

// BotStats aggregates the operator dashboard counters.
func (h *Handlers) BotStats(ctx context.Context, evt *dispatch.Event) error {
	total, err := h.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	premium, err := h.users.Count(ctx, specification.PremiumOnly{})
	if err != nil {
		return fmt.Errorf("count premium: %w", err)
	}
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	active, err := h.users.Count(ctx, specification.ActiveSince{At: midnight})
	if err != nil {
		return fmt.Errorf("count active: %w", err)
	}

	return h.sender.SendMessage(ctx, evt.Sender,
		fmt.Sprintf(reply.BotStats, total, premium, active), nil)
}

// Broadcast opens the collection state for the broadcast body.
func (h *Handlers) Broadcast(ctx context.Context, evt *dispatch.Event) error {
	if err := h.sessions.SetState(ctx, evt.Sender, store.StateAwaitingBroadcastBody); err != nil {
		return err
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.BroadcastPrompt, nil)
}

// BroadcastBody fans the captured message out to every user. Individual
// failures (blocked bot, deleted account) are counted, not fatal.
func (h *Handlers) BroadcastBody(ctx context.Context, evt *dispatch.Event) error {
	ids, err := h.users.FindIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	sent, failed := 0, 0
	for _, id := range ids {
		if id == evt.Sender {
			continue
		}
		var sendErr error
		if evt.Kind == dispatch.KindMedia {
			sendErr = h.sender.ForwardMessage(ctx, id, evt.Sender, evt.MessageID)
		} else {
			sendErr = h.sender.SendMessage(ctx, id, evt.Text, nil)
		}
		if sendErr != nil {
			failed++
			continue
		}
		sent++
	}

	if err := h.sessions.Clear(ctx, evt.Sender); err != nil {
		return err
	}
	return h.sender.SendMessage(ctx, evt.Sender, fmt.Sprintf(reply.BroadcastDone, sent, failed), nil)
}

// DeleteDoc searches for deletion candidates and offers them as buttons.
func (h *Handlers) DeleteDoc(ctx context.Context, evt *dispatch.Event) error {
	term := dispatch.Args(evt.Text)
	if term == "" {
		return h.sender.SendMessage(ctx, evt.Sender, reply.UsageDeleteDoc, nil)
	}

	// Cap the candidate list: the keyboard becomes unusable past ~20 rows.
	docs, err := h.docs.FindAll(ctx,
		specification.TitleContains{Term: term},
		specification.OrderBy{Field: "title"},
		specification.Limit{N: 20},
	)
	if err != nil {
		return fmt.Errorf("search documents: %w", err)
	}
	if len(docs) == 0 {
		return h.sender.SendMessage(ctx, evt.Sender, fmt.Sprintf(reply.DeleteNone, term), nil)
	}

	kb := &transport.Keyboard{}
	for _, doc := range docs {
		kb.Inline = append(kb.Inline, []transport.InlineButton{{
			Text: fmt.Sprintf("ID: %d | %s", doc.Id, doc.Title),
			Data: constant.ActionDelPrefix + strconv.FormatInt(doc.Id, 10),
		}})
	}
	return h.sender.SendMessage(ctx, evt.Sender, fmt.Sprintf(reply.DeletePick, len(docs)), kb)
}

// DeleteSelect shows the irreversible-action confirmation for one pick.
func (h *Handlers) DeleteSelect(ctx context.Context, evt *dispatch.Event) error {
	idText := strings.TrimPrefix(evt.Action, constant.ActionDelPrefix)
	docID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		h.ack(ctx, evt, reply.DeleteGone)
		return nil
	}

	doc, err := h.docs.FindOne(ctx, specification.ByDocumentID{ID: docID})
	if err != nil {
		return fmt.Errorf("find document: %w", err)
	}
	if doc == nil {
		h.ack(ctx, evt, reply.DeleteGone)
		return nil
	}

	if err := h.sessions.SetState(ctx, evt.Sender, store.StateAwaitingDeleteConfirm); err != nil {
		return err
	}
	if err := h.sessions.UpdatePayload(ctx, evt.Sender, map[string]string{store.PayloadDocID: idText}); err != nil {
		return err
	}

	h.ack(ctx, evt, "")
	kb := &transport.Keyboard{Inline: [][]transport.InlineButton{{
		{Text: "✅ Yes, delete it", Data: constant.ActionDelConfirm + idText},
		{Text: "❌ Cancel", Data: constant.ActionDelCancel},
	}}}
	return h.sender.EditMessage(ctx, evt.Sender, evt.MessageID,
		fmt.Sprintf(reply.DeleteConfirm, doc.Title), kb)
}

func (h *Handlers) DeleteConfirm(ctx context.Context, evt *dispatch.Event) error {
	idText := strings.TrimPrefix(evt.Action, constant.ActionDelConfirm)
	docID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		h.ack(ctx, evt, reply.DeleteGone)
		return nil
	}

	if err := h.docs.Delete(ctx, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := h.sessions.Clear(ctx, evt.Sender); err != nil {
		return err
	}

	h.ack(ctx, evt, "")
	return h.sender.EditMessage(ctx, evt.Sender, evt.MessageID, reply.DeleteDone, nil)
}

func (h *Handlers) DeleteCancel(ctx context.Context, evt *dispatch.Event) error {
	if err := h.sessions.Clear(ctx, evt.Sender); err != nil {
		return err
	}
	h.ack(ctx, evt, "")
	return h.sender.EditMessage(ctx, evt.Sender, evt.MessageID, reply.DeleteCancelled, nil)
}

func parseUserID(text string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
