package dispatch

import (
	"context"
	"strings"

	"studybot/pkg/store"
)

// Handler processes one matched event. The router has already loaded the
// user's flow state; handlers re-read payload as needed.
type Handler func(ctx context.Context, evt *Event) error

// StateReq restricts a rule to particular flow states.
type StateReq struct {
	any    bool
	states []store.State
}

// AnyState matches regardless of the user's flow state. Escape commands
// use this so they outrank every in-flow rule.
func AnyState() StateReq { return StateReq{any: true} }

// IdleOnly matches only users not currently inside a flow.
func IdleOnly() StateReq { return StateReq{states: []store.State{store.StateIdle}} }

// InState matches when the user is in one of the given states.
func InState(states ...store.State) StateReq { return StateReq{states: states} }

func (r StateReq) matches(s store.State) bool {
	if r.any {
		return true
	}
	for _, want := range r.states {
		if s == want {
			return true
		}
	}
	return false
}

// Rule is one entry in the ordered routing table. A rule matches when the
// event kind, the user's state, and exactly one of the content matchers
// line up. A rule with no content matcher set is a catch-all for its kind
// and states.
type Rule struct {
	Name         string
	Kinds        []Kind
	States       StateReq
	Command      string
	Exact        string
	ActionPrefix string
	OperatorOnly bool
	Handler      Handler
}

func (r *Rule) kindMatches(k Kind) bool {
	if len(r.Kinds) == 0 {
		return true
	}
	for _, want := range r.Kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (r *Rule) matches(evt *Event, state store.State, operatorID int64) bool {
	if !r.kindMatches(evt.Kind) {
		return false
	}
	if !r.States.matches(state) {
		return false
	}
	if r.OperatorOnly && evt.Sender != operatorID {
		return false
	}
	switch {
	case r.Command != "":
		return evt.Kind == KindText && commandOf(evt.Text) == r.Command
	case r.Exact != "":
		return evt.Kind == KindText && strings.TrimSpace(evt.Text) == r.Exact
	case r.ActionPrefix != "":
		return evt.Kind == KindAction && strings.HasPrefix(evt.Action, r.ActionPrefix)
	default:
		return true
	}
}

// commandOf extracts the leading /command token, tolerating the @botname
// suffix group chats append.
func commandOf(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, "@"); i >= 0 {
		text = text[:i]
	}
	return text
}

// Args returns everything after the command token, trimmed.
func Args(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		return strings.TrimSpace(text[i:])
	}
	return ""
}
