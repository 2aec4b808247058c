package dispatch

import (
	"context"
	"fmt"

	"studybot/internal/pkg/logger"
	"studybot/internal/reply"
	"studybot/internal/session"
	"studybot/internal/transport"
)

// Router walks an ordered rule table and runs the first rule whose
// matchers accept the event. Registration order is the routing contract:
// escape commands first, flow-bound rules next, the catch-all last.
type Router struct {
	rules      []Rule
	sessions   session.Store
	sender     transport.Sender
	operatorID int64
	log        logger.ILogger

	// onEvent, when set, observes every event before routing. Used for
	// activity tracking; it must not block the routed handler.
	onEvent func(ctx context.Context, evt *Event)
}

func NewRouter(sessions session.Store, sender transport.Sender, operatorID int64, log logger.ILogger) *Router {
	return &Router{
		sessions:   sessions,
		sender:     sender,
		operatorID: operatorID,
		log:        log,
	}
}

// Handle appends rules to the table. Order of calls is preserved.
func (r *Router) Handle(rules ...Rule) {
	r.rules = append(r.rules, rules...)
}

// OnEvent installs the per-event observer.
func (r *Router) OnEvent(fn func(ctx context.Context, evt *Event)) {
	r.onEvent = fn
}

// Dispatch routes one event. It never returns an error to the transport:
// every failure path ends in a logged apology so the inbound update is
// always acknowledged.
func (r *Router) Dispatch(ctx context.Context, evt *Event) {
	if r.onEvent != nil {
		r.onEvent(ctx, evt)
	}

	state, err := r.sessions.GetState(ctx, evt.Sender)
	if err != nil {
		r.log.Error("dispatch", "session store unreachable", map[string]interface{}{
			"user_id": evt.Sender,
			"error":   err.Error(),
		})
		r.apologize(ctx, evt, reply.TryAgainLater)
		return
	}

	for i := range r.rules {
		rule := &r.rules[i]
		if !rule.matches(evt, state, r.operatorID) {
			continue
		}
		r.run(ctx, rule, evt)
		return
	}

	r.log.Debug("dispatch", "no rule matched", map[string]interface{}{
		"user_id": evt.Sender,
		"kind":    string(evt.Kind),
		"state":   string(state),
	})
}

func (r *Router) run(ctx context.Context, rule *Rule, evt *Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("dispatch", "handler panicked", map[string]interface{}{
				"rule":    rule.Name,
				"user_id": evt.Sender,
				"panic":   fmt.Sprintf("%v", rec),
			})
			r.apologize(ctx, evt, reply.GenericError)
		}
	}()

	if err := rule.Handler(ctx, evt); err != nil {
		r.log.Error("dispatch", "handler failed", map[string]interface{}{
			"rule":    rule.Name,
			"user_id": evt.Sender,
			"error":   err.Error(),
		})
		r.apologize(ctx, evt, reply.GenericError)
	}
}

func (r *Router) apologize(ctx context.Context, evt *Event, text string) {
	if evt.Kind == KindAction && evt.CallbackID != "" {
		if err := r.sender.AnswerCallback(ctx, evt.CallbackID, text); err == nil {
			return
		}
	}
	if err := r.sender.SendMessage(ctx, evt.Sender, text, nil); err != nil {
		r.log.Error("dispatch", "failed to deliver error reply", map[string]interface{}{
			"user_id": evt.Sender,
			"error":   err.Error(),
		})
	}
}
