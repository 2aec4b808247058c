package dispatch

import (
	"context"
	"errors"
	"testing"

	"studybot/internal/pkg/logger"
	"studybot/internal/session"
	"studybot/internal/transport"
	"studybot/pkg/store"
)

type recordingSender struct {
	messages  []string
	callbacks []string
}

func (s *recordingSender) SendMessage(_ context.Context, _ int64, text string, _ *transport.Keyboard) error {
	s.messages = append(s.messages, text)
	return nil
}

func (s *recordingSender) EditMessage(_ context.Context, _ int64, _ int, text string, _ *transport.Keyboard) error {
	s.messages = append(s.messages, text)
	return nil
}

func (s *recordingSender) ForwardMessage(context.Context, int64, int64, int) error { return nil }

func (s *recordingSender) AnswerCallback(_ context.Context, _ string, text string) error {
	s.callbacks = append(s.callbacks, text)
	return nil
}

func named(name string) (Handler, *[]string) {
	hits := &[]string{}
	return func(context.Context, *Event) error {
		*hits = append(*hits, name)
		return nil
	}, hits
}

func newTestRouter(t *testing.T) (*Router, session.Store, *recordingSender) {
	t.Helper()
	sessions := session.NewMemoryStore()
	sender := &recordingSender{}
	return NewRouter(sessions, sender, 999, logger.NewNopLogger()), sessions, sender
}

func TestFirstMatchWins(t *testing.T) {
	router, _, _ := newTestRouter(t)
	first, firstHits := named("first")
	second, secondHits := named("second")
	router.Handle(
		Rule{Name: "first", Kinds: []Kind{KindText}, States: AnyState(), Command: "/stop", Handler: first},
		Rule{Name: "second", Kinds: []Kind{KindText}, States: AnyState(), Handler: second},
	)

	router.Dispatch(context.Background(), &Event{Sender: 1, Kind: KindText, Text: "/stop"})

	if len(*firstHits) != 1 || len(*secondHits) != 0 {
		t.Errorf("expected only the first rule to run: first=%d second=%d", len(*firstHits), len(*secondHits))
	}
}

func TestEscapeCommandOutranksFlowState(t *testing.T) {
	router, sessions, _ := newTestRouter(t)
	escape, escapeHits := named("escape")
	flow, flowHits := named("flow")
	router.Handle(
		Rule{Name: "escape", Kinds: []Kind{KindText}, States: AnyState(), Command: "/stop", Handler: escape},
		Rule{Name: "flow", Kinds: []Kind{KindText}, States: InState(store.StateAwaitingAIPrompt), Handler: flow},
	)

	ctx := context.Background()
	if err := sessions.SetState(ctx, 1, store.StateAwaitingAIPrompt); err != nil {
		t.Fatal(err)
	}

	router.Dispatch(ctx, &Event{Sender: 1, Kind: KindText, Text: "/stop"})
	if len(*escapeHits) != 1 || len(*flowHits) != 0 {
		t.Error("escape command should win while inside a flow")
	}

	router.Dispatch(ctx, &Event{Sender: 1, Kind: KindText, Text: "what is gravity"})
	if len(*flowHits) != 1 {
		t.Error("plain text inside the flow should reach the flow rule")
	}
}

func TestStateBoundRuleSkippedWhenIdle(t *testing.T) {
	router, _, _ := newTestRouter(t)
	flow, flowHits := named("flow")
	fallback, fallbackHits := named("fallback")
	router.Handle(
		Rule{Name: "flow", Kinds: []Kind{KindText}, States: InState(store.StateAwaitingSearchQuery), Handler: flow},
		Rule{Name: "fallback", Kinds: []Kind{KindText}, States: AnyState(), Handler: fallback},
	)

	router.Dispatch(context.Background(), &Event{Sender: 1, Kind: KindText, Text: "hello"})

	if len(*flowHits) != 0 {
		t.Error("flow rule ran for an idle user")
	}
	if len(*fallbackHits) != 1 {
		t.Error("fallback rule should catch unmatched text")
	}
}

func TestOperatorOnlyRule(t *testing.T) {
	router, _, _ := newTestRouter(t)
	admin, adminHits := named("admin")
	router.Handle(
		Rule{Name: "admin", Kinds: []Kind{KindText}, States: AnyState(), Command: "/botstats", OperatorOnly: true, Handler: admin},
	)

	ctx := context.Background()
	router.Dispatch(ctx, &Event{Sender: 1, Kind: KindText, Text: "/botstats"})
	if len(*adminHits) != 0 {
		t.Error("non-operator reached an operator rule")
	}

	router.Dispatch(ctx, &Event{Sender: 999, Kind: KindText, Text: "/botstats"})
	if len(*adminHits) != 1 {
		t.Error("operator was refused their own rule")
	}
}

func TestActionPrefixRouting(t *testing.T) {
	router, _, _ := newTestRouter(t)
	doc, docHits := named("doc")
	page, pageHits := named("page")
	router.Handle(
		Rule{Name: "page", Kinds: []Kind{KindAction}, States: AnyState(), ActionPrefix: "docs:page:", Handler: page},
		Rule{Name: "doc", Kinds: []Kind{KindAction}, States: AnyState(), ActionPrefix: "doc:", Handler: doc},
	)

	ctx := context.Background()
	router.Dispatch(ctx, &Event{Sender: 1, Kind: KindAction, Action: "docs:page:2:algebra"})
	router.Dispatch(ctx, &Event{Sender: 1, Kind: KindAction, Action: "doc:42"})

	if len(*pageHits) != 1 || len(*docHits) != 1 {
		t.Errorf("prefix routing failed: page=%d doc=%d", len(*pageHits), len(*docHits))
	}
}

func TestPanicIsContained(t *testing.T) {
	router, _, sender := newTestRouter(t)
	router.Handle(Rule{
		Name:   "boom",
		Kinds:  []Kind{KindText},
		States: AnyState(),
		Handler: func(context.Context, *Event) error {
			panic("boom")
		},
	})

	router.Dispatch(context.Background(), &Event{Sender: 1, Kind: KindText, Text: "hi"})

	if len(sender.messages) != 1 {
		t.Fatalf("expected one apology, got %d", len(sender.messages))
	}
}

func TestHandlerErrorSendsApology(t *testing.T) {
	router, _, sender := newTestRouter(t)
	router.Handle(Rule{
		Name:   "fails",
		Kinds:  []Kind{KindText},
		States: AnyState(),
		Handler: func(context.Context, *Event) error {
			return errors.New("db down")
		},
	})

	router.Dispatch(context.Background(), &Event{Sender: 1, Kind: KindText, Text: "hi"})

	if len(sender.messages) != 1 {
		t.Fatalf("expected one apology, got %d", len(sender.messages))
	}
}

func TestOnEventObserverSeesEveryEvent(t *testing.T) {
	router, _, _ := newTestRouter(t)
	handler, _ := named("any")
	router.Handle(Rule{Name: "any", Kinds: []Kind{KindText}, States: AnyState(), Handler: handler})

	var seen []int64
	router.OnEvent(func(_ context.Context, evt *Event) {
		seen = append(seen, evt.Sender)
	})

	ctx := context.Background()
	router.Dispatch(ctx, &Event{Sender: 1, Kind: KindText, Text: "hi"})
	router.Dispatch(ctx, &Event{Sender: 2, Kind: KindAction, Action: "x"}) // no matching rule

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("observer saw %v, want [1 2]", seen)
	}
}

func TestCommandOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/start", "/start"},
		{"/start some args", "/start"},
		{"/start@studybot", "/start"},
		{"  /stop  ", "/stop"},
		{"hello", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := commandOf(tt.in); got != tt.want {
			t.Errorf("commandOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
