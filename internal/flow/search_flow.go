package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"studybot/internal/constant"
	"studybot/internal/dispatch"
	"studybot/internal/entity"
	"studybot/internal/quota"
	"studybot/internal/reply"
	"studybot/internal/repository/specification"
	"studybot/internal/transport"
	"studybot/pkg/store"
)

// SearchEntry moves the user into the query-collection state. Users who
// have not picked a class are redirected there first.
func (h *Handlers) SearchEntry(ctx context.Context, evt *dispatch.Event) error {
	user, err := h.ledger.MaybeReset(ctx, evt.Sender)
	if errors.Is(err, quota.ErrUserNotFound) {
		return h.sender.SendMessage(ctx, evt.Sender, reply.RegisterFirst, nil)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if user.SelectedClass == constant.ClassNone {
		return h.sender.SendMessage(ctx, evt.Sender, reply.ClassFirst, nil)
	}

	// Free users with no downloads left get the upgrade pitch up front
	// instead of a result list they cannot open.
	if user.Tier() == entity.TierFree && user.DownloadsRemaining <= 0 {
		return h.sender.SendMessage(ctx, evt.Sender, reply.DownloadExhausted, nil)
	}

	if err := h.sessions.SetState(ctx, evt.Sender, store.StateAwaitingSearchQuery); err != nil {
		return err
	}
	return h.sender.SendMessage(ctx, evt.Sender, reply.SearchPrompt, nil)
}

// SearchQuery validates the query and shows page one. The user stays in
// the search state so they can refine without re-entering the flow.
func (h *Handlers) SearchQuery(ctx context.Context, evt *dispatch.Event) error {
	query := strings.TrimSpace(evt.Text)

	if err := h.validate.Var(query, fmt.Sprintf("min=%d", constant.QueryMinLen)); err != nil {
		return h.sender.SendMessage(ctx, evt.Sender, reply.SearchTooShort, nil)
	}
	if err := h.validate.Var(query, fmt.Sprintf("max=%d", constant.QueryMaxLen)); err != nil {
		return h.sender.SendMessage(ctx, evt.Sender, reply.SearchTooLong, nil)
	}

	user, err := h.users.Ensure(ctx, evt.Sender, evt.Username)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	return h.showResults(ctx, evt, user, query, 1, false)
}

// SearchPage handles the docs:page:<n>:<query> pagination action by
// editing the original results message in place.
func (h *Handlers) SearchPage(ctx context.Context, evt *dispatch.Event) error {
	rest := strings.TrimPrefix(evt.Action, constant.ActionDocPagePrefix)
	sep := strings.Index(rest, ":")
	if sep <= 0 {
		h.ack(ctx, evt, reply.InvalidPage)
		return nil
	}
	page, err := strconv.Atoi(rest[:sep])
	if err != nil || page < 1 {
		h.ack(ctx, evt, reply.InvalidPage)
		return nil
	}
	query := rest[sep+1:]

	user, err := h.users.Ensure(ctx, evt.Sender, evt.Username)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	h.ack(ctx, evt, "")
	return h.showResults(ctx, evt, user, query, page, true)
}

func (h *Handlers) showResults(ctx context.Context, evt *dispatch.Event, user *entity.User, query string, page int, edit bool) error {
	docs, totalPages, err := h.docs.Search(ctx, user.SelectedClass, query, page, constant.SearchPageSize)
	if err != nil {
		h.log.Error("flow", "document search failed", map[string]interface{}{
			"user_id": evt.Sender,
			"query":   query,
			"error":   err.Error(),
		})
		return h.sender.SendMessage(ctx, evt.Sender, reply.SearchError, nil)
	}

	if len(docs) == 0 {
		text := fmt.Sprintf(reply.SearchNoResults, query, plainClass(user.SelectedClass))
		if edit {
			return h.sender.EditMessage(ctx, evt.Sender, evt.MessageID, text, nil)
		}
		return h.sender.SendMessage(ctx, evt.Sender, text, nil)
	}

	text := fmt.Sprintf(reply.SearchResults, len(docs), query, page, totalPages)
	kb := resultsKeyboard(docs, user.Tier() == entity.TierPremium, query, page, totalPages)
	if edit {
		return h.sender.EditMessage(ctx, evt.Sender, evt.MessageID, text, kb)
	}
	if err := h.sender.SendMessage(ctx, evt.Sender, text, kb); err != nil {
		return err
	}
	// A delivered result list ends the flow; only an empty result keeps
	// the user collecting queries.
	return h.sessions.Clear(ctx, evt.Sender)
}

func resultsKeyboard(docs []*entity.Document, premium bool, query string, page, totalPages int) *transport.Keyboard {
	kb := &transport.Keyboard{}
	for _, doc := range docs {
		label := doc.Title
		data := constant.ActionDocPrefix + strconv.FormatInt(doc.Id, 10)
		if doc.Locked(premium) {
			label = "🔒 " + label
			data = constant.ActionLockPrefix + strconv.FormatInt(doc.Id, 10)
		}
		kb.Inline = append(kb.Inline, []transport.InlineButton{{Text: label, Data: data}})
	}

	var nav []transport.InlineButton
	if page > 1 {
		nav = append(nav, transport.InlineButton{
			Text: "⬅️ Prev",
			Data: fmt.Sprintf("%s%d:%s", constant.ActionDocPagePrefix, page-1, query),
		})
	}
	if page < totalPages {
		nav = append(nav, transport.InlineButton{
			Text: "Next ➡️",
			Data: fmt.Sprintf("%s%d:%s", constant.ActionDocPagePrefix, page+1, query),
		})
	}
	if len(nav) > 0 {
		kb.Inline = append(kb.Inline, nav)
	}
	return kb
}

// DocumentLocked answers taps on locked entries without burning quota.
func (h *Handlers) DocumentLocked(ctx context.Context, evt *dispatch.Event) error {
	h.ack(ctx, evt, reply.DocumentLocked)
	return nil
}

// Download resolves a doc:<id> tap: access check, one guarded debit, then
// the link. The event id keys the debit so a redelivered tap cannot spend
// twice.
func (h *Handlers) Download(ctx context.Context, evt *dispatch.Event) error {
	idText := strings.TrimPrefix(evt.Action, constant.ActionDocPrefix)
	docID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		h.ack(ctx, evt, reply.DownloadGone)
		return nil
	}

	user, err := h.ledger.MaybeReset(ctx, evt.Sender)
	if errors.Is(err, quota.ErrUserNotFound) {
		h.ack(ctx, evt, "")
		return h.sender.SendMessage(ctx, evt.Sender, reply.RegisterFirst, nil)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	doc, err := h.docs.FindOne(ctx, specification.ByDocumentID{ID: docID})
	if err != nil {
		return fmt.Errorf("find document: %w", err)
	}
	if doc == nil {
		h.ack(ctx, evt, "")
		return h.sender.SendMessage(ctx, evt.Sender, reply.DownloadGone, nil)
	}
	if doc.Locked(user.Tier() == entity.TierPremium) {
		h.ack(ctx, evt, reply.DocumentLocked)
		return nil
	}

	ok, err := h.ledger.TryDebit(ctx, evt.Sender, quota.ResourceDownload, evt.ID)
	if err != nil {
		return fmt.Errorf("debit download: %w", err)
	}
	if !ok {
		h.ack(ctx, evt, "")
		return h.sender.SendMessage(ctx, evt.Sender, reply.DownloadExhausted, nil)
	}

	remaining, err := h.ledger.Balance(ctx, evt.Sender, quota.ResourceDownload)
	if err != nil {
		remaining = 0
	}

	h.ack(ctx, evt, "")
	return h.sender.SendMessage(ctx, evt.Sender,
		fmt.Sprintf(reply.DownloadLink, doc.Title, doc.Link, remaining), nil)
}
