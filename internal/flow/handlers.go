package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"studybot/internal/cache"
	"studybot/internal/constant"
	"studybot/internal/dispatch"
	"studybot/internal/notify"
	"studybot/internal/pkg/logger"
	"studybot/internal/quota"
	"studybot/internal/repository/contract"
	"studybot/internal/session"
	"studybot/internal/transport"
	"studybot/internal/worker"
	"studybot/pkg/completion"
	"studybot/pkg/store"
)

// JobProcessPrompt is the background job name for AI completions.
const JobProcessPrompt = "ai.process_prompt"

// Handlers owns every conversational flow. One instance serves all users;
// per-user state lives in the session store.
type Handlers struct {
	users    contract.UserRepository
	docs     contract.DocumentRepository
	prompts  contract.PromptRepository
	sessions session.Store
	ledger   *quota.Ledger
	cache    cache.ResponseCache
	adapter  *completion.Adapter
	exec     *worker.Executor
	sender   transport.Sender
	notifier notify.OperatorNotifier
	validate *validator.Validate
	log      logger.ILogger

	operatorID int64
}

type Deps struct {
	Users    contract.UserRepository
	Docs     contract.DocumentRepository
	Prompts  contract.PromptRepository
	Sessions session.Store
	Ledger   *quota.Ledger
	Cache    cache.ResponseCache
	Adapter  *completion.Adapter
	Executor *worker.Executor
	Sender   transport.Sender
	Notifier notify.OperatorNotifier
	Log      logger.ILogger

	OperatorID int64
}

func NewHandlers(d Deps) *Handlers {
	h := &Handlers{
		users:      d.Users,
		docs:       d.Docs,
		prompts:    d.Prompts,
		sessions:   d.Sessions,
		ledger:     d.Ledger,
		cache:      d.Cache,
		adapter:    d.Adapter,
		exec:       d.Executor,
		sender:     d.Sender,
		notifier:   d.Notifier,
		validate:   validator.New(),
		log:        d.Log,
		operatorID: d.OperatorID,
	}
	if h.exec != nil {
		h.exec.Register(JobProcessPrompt, h.ProcessPrompt)
	}
	return h
}

// Register installs the routing table. Order is the contract: escape
// commands beat everything, flow-bound rules come next in the order the
// original menus expose them, the catch-all closes the table.
func (h *Handlers) Register(router *dispatch.Router) {
	router.OnEvent(func(ctx context.Context, evt *dispatch.Event) {
		if err := h.users.TouchLastActive(ctx, evt.Sender); err != nil {
			h.log.Debug("flow", "failed to touch last active", map[string]interface{}{
				"user_id": evt.Sender,
				"error":   err.Error(),
			})
		}
	})

	router.Handle(
		// Escapes.
		dispatch.Rule{Name: "stop", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdStop, Handler: h.Stop},
		dispatch.Rule{Name: "help", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdHelp, Handler: h.Help},
		dispatch.Rule{Name: "stats", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdStats, Handler: h.Stats},

		// Start and class selection.
		dispatch.Rule{Name: "start", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdStart, Handler: h.Start},
		dispatch.Rule{Name: "change_class", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdChangeClass, Handler: h.ChangeClass},
		dispatch.Rule{Name: "class_pick", Kinds: []dispatch.Kind{dispatch.KindAction}, States: dispatch.AnyState(),
			ActionPrefix: constant.ActionClassPrefix, Handler: h.PickClass},

		// Operator commands.
		dispatch.Rule{Name: "admin_upgrade", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdUpgradeUser, OperatorOnly: true, Handler: h.UpgradeUser},
		dispatch.Rule{Name: "admin_end_plan", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdEndPlan, OperatorOnly: true, Handler: h.EndPlan},
		dispatch.Rule{Name: "admin_extend_plan", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdExtendPlan, OperatorOnly: true, Handler: h.ExtendPlan},
		dispatch.Rule{Name: "admin_bot_stats", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdBotStats, OperatorOnly: true, Handler: h.BotStats},
		dispatch.Rule{Name: "admin_broadcast", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdBroadcast, OperatorOnly: true, Handler: h.Broadcast},
		dispatch.Rule{Name: "admin_broadcast_body", Kinds: []dispatch.Kind{dispatch.KindText, dispatch.KindMedia},
			States: dispatch.InState(store.StateAwaitingBroadcastBody), OperatorOnly: true, Handler: h.BroadcastBody},
		dispatch.Rule{Name: "admin_delete_doc", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdDeleteDoc, OperatorOnly: true, Handler: h.DeleteDoc},
		dispatch.Rule{Name: "admin_delete_pick", Kinds: []dispatch.Kind{dispatch.KindAction}, States: dispatch.AnyState(),
			ActionPrefix: constant.ActionDelConfirm, OperatorOnly: true, Handler: h.DeleteConfirm},
		dispatch.Rule{Name: "admin_delete_cancel", Kinds: []dispatch.Kind{dispatch.KindAction}, States: dispatch.AnyState(),
			ActionPrefix: constant.ActionDelCancel, OperatorOnly: true, Handler: h.DeleteCancel},
		dispatch.Rule{Name: "admin_delete_select", Kinds: []dispatch.Kind{dispatch.KindAction}, States: dispatch.AnyState(),
			ActionPrefix: constant.ActionDelPrefix, OperatorOnly: true, Handler: h.DeleteSelect},

		// Document search.
		dispatch.Rule{Name: "search_cmd", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdSearch, Handler: h.SearchEntry},
		dispatch.Rule{Name: "search_btn", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.IdleOnly(),
			Exact: constant.BtnSearch, Handler: h.SearchEntry},
		dispatch.Rule{Name: "search_query", Kinds: []dispatch.Kind{dispatch.KindText},
			States: dispatch.InState(store.StateAwaitingSearchQuery), Handler: h.SearchQuery},
		dispatch.Rule{Name: "search_page", Kinds: []dispatch.Kind{dispatch.KindAction}, States: dispatch.AnyState(),
			ActionPrefix: constant.ActionDocPagePrefix, Handler: h.SearchPage},
		dispatch.Rule{Name: "doc_locked", Kinds: []dispatch.Kind{dispatch.KindAction}, States: dispatch.AnyState(),
			ActionPrefix: constant.ActionLockPrefix, Handler: h.DocumentLocked},
		dispatch.Rule{Name: "doc_download", Kinds: []dispatch.Kind{dispatch.KindAction}, States: dispatch.AnyState(),
			ActionPrefix: constant.ActionDocPrefix, Handler: h.Download},

		// AI chat.
		dispatch.Rule{Name: "ai_entry", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.IdleOnly(),
			Exact: constant.BtnChatAI, Handler: h.AIChatEntry},
		dispatch.Rule{Name: "ai_prompt", Kinds: []dispatch.Kind{dispatch.KindText},
			States: dispatch.InState(store.StateAwaitingAIPrompt), Handler: h.AIPrompt},

		// Payment.
		dispatch.Rule{Name: "upgrade_cmd", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdUpgrade, Handler: h.UpgradeEntry},
		dispatch.Rule{Name: "upgrade_btn", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.IdleOnly(),
			Exact: constant.BtnUpgrade, Handler: h.UpgradeEntry},
		dispatch.Rule{Name: "payment_status", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.AnyState(),
			Command: "/" + constant.CmdPaymentStatus, Handler: h.PaymentStatus},
		dispatch.Rule{Name: "payment_proof", Kinds: []dispatch.Kind{dispatch.KindMedia},
			States: dispatch.InState(store.StateAwaitingPaymentProof), Handler: h.PaymentProof},
		dispatch.Rule{Name: "payment_not_photo", Kinds: []dispatch.Kind{dispatch.KindText},
			States: dispatch.InState(store.StateAwaitingPaymentProof), Handler: h.PaymentNotPhoto},

		// Catch-alls.
		dispatch.Rule{Name: "help_btn", Kinds: []dispatch.Kind{dispatch.KindText}, States: dispatch.IdleOnly(),
			Exact: constant.BtnHelp, Handler: h.Help},
		dispatch.Rule{Name: "fallback", Kinds: []dispatch.Kind{dispatch.KindText, dispatch.KindMedia, dispatch.KindAction},
			States: dispatch.AnyState(), Handler: h.Fallback},
	)
}

func mainMenuKeyboard() *transport.Keyboard {
	return &transport.Keyboard{
		Reply: [][]string{
			{constant.BtnChatAI, constant.BtnSearch},
			{constant.BtnUpgrade, constant.BtnHelp},
		},
	}
}

func classKeyboard() *transport.Keyboard {
	rows := make([][]transport.InlineButton, 0, len(constant.ClassTags))
	for _, tag := range constant.ClassTags {
		rows = append(rows, []transport.InlineButton{{
			Text: "Class " + tag + "th",
			Data: constant.ActionClassPrefix + tag,
		}})
	}
	return &transport.Keyboard{Inline: rows}
}

// ack answers the callback spinner when the event is an action. Safe to
// call for text events.
func (h *Handlers) ack(ctx context.Context, evt *dispatch.Event, text string) {
	if evt.CallbackID == "" {
		return
	}
	if err := h.sender.AnswerCallback(ctx, evt.CallbackID, text); err != nil {
		h.log.Warn("flow", "failed to answer callback", map[string]interface{}{
			"user_id": evt.Sender,
			"error":   err.Error(),
		})
	}
}

func encodeHistory(turns []completion.Turn) string {
	data, err := json.Marshal(turns)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeHistory(raw string) []completion.Turn {
	if raw == "" {
		return nil
	}
	var turns []completion.Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil
	}
	return turns
}

func plainClass(tag string) string {
	if tag == constant.ClassNone {
		return "not selected"
	}
	return fmt.Sprintf("Class %sth", tag)
}
