package flow

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"studybot/internal/cache"
	"studybot/internal/constant"
	"studybot/internal/dispatch"
	"studybot/internal/entity"
	"studybot/internal/notify"
	"studybot/internal/pkg/logger"
	"studybot/internal/quota"
	"studybot/internal/repository/contract"
	"studybot/internal/repository/specification"
	"studybot/internal/session"
	"studybot/internal/transport"
	"studybot/internal/worker"
	"studybot/pkg/completion"
	"studybot/pkg/store"
)

// --- fakes ---

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*entity.User
}

func newFakeUsers(users ...*entity.User) *fakeUsers {
	m := make(map[int64]*entity.User, len(users))
	for _, u := range users {
		m[u.Id] = u
	}
	return &fakeUsers{users: m}
}

func (f *fakeUsers) Ensure(_ context.Context, id int64, username *string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	u := &entity.User{
		Id:                 id,
		Username:           username,
		SelectedClass:      constant.ClassNone,
		AIRemaining:        constant.FreeAICeiling,
		DownloadsRemaining: constant.FreeDownloadCeiling,
	}
	f.users[id] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindOne(_ context.Context, specs ...specification.Specification) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range specs {
		if byID, ok := s.(specification.ByUserID); ok {
			if u, ok := f.users[byID.ID]; ok {
				cp := *u
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindIDs(context.Context, ...specification.Specification) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeUsers) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if userMatches(u, specs) {
			n++
		}
	}
	return n, nil
}

func userMatches(u *entity.User, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.PremiumOnly:
			if !u.IsPremium {
				return false
			}
		case specification.ActiveSince:
			if u.LastActive.Before(sp.At) {
				return false
			}
		}
	}
	return true
}

func (f *fakeUsers) SetClass(_ context.Context, id int64, class string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.SelectedClass = class
	}
	return nil
}

func (f *fakeUsers) TouchLastActive(context.Context, int64) error { return nil }

func (f *fakeUsers) TryDecrement(_ context.Context, id int64, field contract.CounterField) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return false, nil
	}
	switch field {
	case contract.CounterAI:
		if u.AIRemaining > 0 {
			u.AIRemaining--
			return true, nil
		}
	case contract.CounterDownloads:
		if u.DownloadsRemaining > 0 {
			u.DownloadsRemaining--
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) GrantPremium(_ context.Context, id int64, expiresAt time.Time, aiCeiling, downloadCeiling int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IsPremium = true
		u.PremiumExpiresAt = &expiresAt
		u.AIRemaining = aiCeiling
		u.DownloadsRemaining = downloadCeiling
	}
	return nil
}

func (f *fakeUsers) RevertToFree(_ context.Context, id int64, aiCeiling, downloadCeiling int, nextReset time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IsPremium = false
		u.PremiumExpiresAt = nil
		u.AIRemaining = aiCeiling
		u.DownloadsRemaining = downloadCeiling
		u.DownloadsResetAt = &nextReset
	}
	return nil
}

func (f *fakeUsers) ExtendPremium(_ context.Context, id int64, days int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok && u.PremiumExpiresAt != nil {
		ext := u.PremiumExpiresAt.Add(time.Duration(days) * 24 * time.Hour)
		u.PremiumExpiresAt = &ext
	}
	return nil
}

func (f *fakeUsers) ResetDownloadWindow(_ context.Context, id int64, ceiling int, nextReset time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.DownloadsRemaining = ceiling
		u.DownloadsResetAt = &nextReset
	}
	return nil
}

func (f *fakeUsers) ResetDailyCeilings(context.Context, int, int, int) error { return nil }

func (f *fakeUsers) aiRemaining(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].AIRemaining
}

func (f *fakeUsers) downloadsRemaining(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].DownloadsRemaining
}

type fakeDocs struct {
	docs map[int64]*entity.Document
}

func (f *fakeDocs) Search(_ context.Context, classTag, query string, _, _ int) ([]*entity.Document, int, error) {
	var out []*entity.Document
	for _, d := range f.docs {
		if d.ClassTag == classTag && strings.Contains(strings.ToLower(d.Title), strings.ToLower(query)) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, 0, nil
	}
	return out, 1, nil
}

func (f *fakeDocs) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Document, error) {
	for _, s := range specs {
		if byID, ok := s.(specification.ByDocumentID); ok {
			return f.docs[byID.ID], nil
		}
	}
	return nil, nil
}

func (f *fakeDocs) FindAll(context.Context, ...specification.Specification) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDocs) Delete(_ context.Context, id int64) error {
	delete(f.docs, id)
	return nil
}

type fakePrompts struct{}

func (fakePrompts) SystemPromptFor(context.Context, string) string {
	return constant.DefaultSystemPrompt
}

type sentMessage struct {
	chatID int64
	text   string
}

type recordingSender struct {
	mu        sync.Mutex
	messages  []sentMessage
	callbacks []string
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string, _ *transport.Keyboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func (s *recordingSender) EditMessage(_ context.Context, chatID int64, _ int, text string, _ *transport.Keyboard) error {
	return s.SendMessage(context.Background(), chatID, text, nil)
}

func (s *recordingSender) ForwardMessage(context.Context, int64, int64, int) error { return nil }

func (s *recordingSender) AnswerCallback(_ context.Context, callbackID string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callbackID)
	return nil
}

func (s *recordingSender) callbackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callbacks)
}

func (s *recordingSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1].text
}

type countingClient struct {
	mu    sync.Mutex
	calls int
	text  string
}

func (c *countingClient) Generate(context.Context, string, []completion.Turn) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.text, nil
}

func (c *countingClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fixture struct {
	handlers *Handlers
	users    *fakeUsers
	sessions session.Store
	sender   *recordingSender
	client   *countingClient
}

func newFixture(t *testing.T, users ...*entity.User) *fixture {
	t.Helper()
	fakeU := newFakeUsers(users...)
	sender := &recordingSender{}
	sessions := session.NewMemoryStore()
	client := &countingClient{text: "model answer"}
	log := logger.NewNopLogger()

	h := NewHandlers(Deps{
		Users:      fakeU,
		Docs:       &fakeDocs{docs: map[int64]*entity.Document{}},
		Prompts:    fakePrompts{},
		Sessions:   sessions,
		Ledger:     quota.NewLedger(fakeU, nil, log),
		Cache:      cache.NewMemoryCache(),
		Adapter:    completion.NewAdapter(client, nil, log),
		Sender:     sender,
		Notifier:   notify.NopNotifier{},
		Log:        log,
		OperatorID: 999,
	})
	return &fixture{handlers: h, users: fakeU, sessions: sessions, sender: sender, client: client}
}

func (f *fixture) withDocs(docs ...*entity.Document) *fixture {
	m := map[int64]*entity.Document{}
	for _, d := range docs {
		m[d.Id] = d
	}
	f.handlers.docs = &fakeDocs{docs: m}
	return f
}

// --- tests ---

func TestAIChatEntryRefusedWhenExhausted(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", AIRemaining: 0})
	ctx := context.Background()

	err := f.handlers.AIChatEntry(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText})
	if err != nil {
		t.Fatalf("AIChatEntry: %v", err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateIdle {
		t.Errorf("state = %s, want idle after refusal", state)
	}
	if f.users.aiRemaining(1) != 0 {
		t.Error("refusal must not touch the balance")
	}
}

func TestAIChatEntryOpensConversation(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", AIRemaining: 3})
	ctx := context.Background()

	if err := f.handlers.AIChatEntry(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText}); err != nil {
		t.Fatalf("AIChatEntry: %v", err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateAwaitingAIPrompt {
		t.Errorf("state = %s, want awaiting_ai_prompt", state)
	}
	if f.users.aiRemaining(1) != 3 {
		t.Error("entry alone must not debit")
	}
}

func TestProcessPromptDebitsOnceThenServesFromCache(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", AIRemaining: 5})
	ctx := context.Background()

	job := func(id string) *worker.Job {
		return &worker.Job{UserID: 1, Args: map[string]string{"prompt": "what is gravity", "event_id": id}}
	}

	if err := f.handlers.ProcessPrompt(ctx, job("evt-1")); err != nil {
		t.Fatalf("ProcessPrompt: %v", err)
	}
	if f.users.aiRemaining(1) != 4 {
		t.Errorf("ai remaining = %d, want 4 after one miss", f.users.aiRemaining(1))
	}
	if f.client.count() != 1 {
		t.Errorf("upstream calls = %d, want 1", f.client.count())
	}

	// Same prompt again: cache answers, no debit, no upstream call.
	if err := f.handlers.ProcessPrompt(ctx, job("evt-2")); err != nil {
		t.Fatalf("ProcessPrompt (cached): %v", err)
	}
	if f.users.aiRemaining(1) != 4 {
		t.Errorf("ai remaining = %d, cached reply must be free", f.users.aiRemaining(1))
	}
	if f.client.count() != 1 {
		t.Errorf("upstream calls = %d, cache hit must not call upstream", f.client.count())
	}
	if !strings.Contains(f.sender.last(), "cached response") {
		t.Errorf("cached reply missing marker: %q", f.sender.last())
	}
}

func TestProcessPromptExhaustedMidConversation(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", AIRemaining: 0})
	ctx := context.Background()

	if err := f.sessions.SetState(ctx, 1, store.StateAwaitingAIPrompt); err != nil {
		t.Fatal(err)
	}

	err := f.handlers.ProcessPrompt(ctx, &worker.Job{
		UserID: 1,
		Args:   map[string]string{"prompt": "anything", "event_id": "evt-9"},
	})
	if err != nil {
		t.Fatalf("ProcessPrompt: %v", err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateIdle {
		t.Errorf("exhaustion should end the conversation, state = %s", state)
	}
	if f.client.count() != 0 {
		t.Error("no upstream call without a successful debit")
	}
}

func TestDownloadDebitsAndSendsLink(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", DownloadsRemaining: 2})
	f.withDocs(&entity.Document{Id: 42, Title: "Algebra Notes", Link: "https://example.com/42", IsFree: true, ClassTag: "10"})
	ctx := context.Background()

	err := f.handlers.Download(ctx, &dispatch.Event{
		ID: "evt-1", Sender: 1, Kind: dispatch.KindAction, Action: "doc:42",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if f.users.downloadsRemaining(1) != 1 {
		t.Errorf("downloads remaining = %d, want 1", f.users.downloadsRemaining(1))
	}
	if !strings.Contains(f.sender.last(), "https://example.com/42") {
		t.Errorf("reply missing link: %q", f.sender.last())
	}
}

func TestDownloadRefusedForLockedDocument(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", DownloadsRemaining: 2})
	f.withDocs(&entity.Document{Id: 7, Title: "Premium Notes", Link: "https://example.com/7", IsFree: false, ClassTag: "10"})
	ctx := context.Background()

	err := f.handlers.Download(ctx, &dispatch.Event{
		ID: "evt-1", Sender: 1, Kind: dispatch.KindAction, Action: "doc:7",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if f.users.downloadsRemaining(1) != 2 {
		t.Error("locked refusal must not debit")
	}
}

func TestDownloadRefusedWhenExhausted(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", DownloadsRemaining: 0})
	f.withDocs(&entity.Document{Id: 42, Title: "Algebra Notes", Link: "https://example.com/42", IsFree: true, ClassTag: "10"})
	ctx := context.Background()

	err := f.handlers.Download(ctx, &dispatch.Event{
		ID: "evt-1", Sender: 1, Kind: dispatch.KindAction, Action: "doc:42",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if !strings.Contains(f.sender.last(), "free PDF downloads") {
		t.Errorf("expected exhaustion message, got %q", f.sender.last())
	}
}

func TestSearchQueryValidation(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10"})
	ctx := context.Background()
	if err := f.sessions.SetState(ctx, 1, store.StateAwaitingSearchQuery); err != nil {
		t.Fatal(err)
	}

	if err := f.handlers.SearchQuery(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText, Text: "a"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.sender.last(), "at least 2 characters") {
		t.Errorf("short query not refused: %q", f.sender.last())
	}

	long := strings.Repeat("x", constant.QueryMaxLen+1)
	if err := f.handlers.SearchQuery(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText, Text: long}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.sender.last(), "under 100 characters") {
		t.Errorf("long query not refused: %q", f.sender.last())
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateAwaitingSearchQuery {
		t.Error("invalid queries should keep the user in the search flow")
	}
}

func TestSearchEntryRequiresClass(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: constant.ClassNone})
	ctx := context.Background()

	if err := f.handlers.SearchEntry(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText}); err != nil {
		t.Fatal(err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateIdle {
		t.Error("user without a class must not enter the search flow")
	}
}

func TestSearchEntryRefusedWhenDownloadsExhausted(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", DownloadsRemaining: 0})
	ctx := context.Background()

	if err := f.handlers.SearchEntry(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText}); err != nil {
		t.Fatal(err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateIdle {
		t.Error("exhausted free user must not enter the search flow")
	}
	if !strings.Contains(f.sender.last(), "free PDF downloads") {
		t.Errorf("expected exhaustion message, got %q", f.sender.last())
	}
}

func TestUnknownActionIsAnsweredNotDropped(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10"})
	router := dispatch.NewRouter(f.sessions, f.sender, 999, logger.NewNopLogger())
	f.handlers.Register(router)

	router.Dispatch(context.Background(), &dispatch.Event{
		Sender: 1, Kind: dispatch.KindAction, Action: "noop", CallbackID: "cb-1",
	})

	if f.sender.callbackCount() != 1 {
		t.Errorf("callbacks answered = %d, want 1: a stale button tap must not spin forever", f.sender.callbackCount())
	}
}

func TestSearchQueryClearsStateOnResults(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", DownloadsRemaining: 5})
	f.withDocs(&entity.Document{Id: 42, Title: "Algebra Notes", Link: "https://example.com/42", IsFree: true, ClassTag: "10"})
	ctx := context.Background()
	if err := f.sessions.SetState(ctx, 1, store.StateAwaitingSearchQuery); err != nil {
		t.Fatal(err)
	}

	if err := f.handlers.SearchQuery(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText, Text: "algebra"}); err != nil {
		t.Fatal(err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateIdle {
		t.Errorf("state = %s, a delivered result list must end the flow", state)
	}
}

func TestSearchQueryKeepsStateOnNoResults(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10", DownloadsRemaining: 5})
	f.withDocs(&entity.Document{Id: 42, Title: "Algebra Notes", Link: "https://example.com/42", IsFree: true, ClassTag: "10"})
	ctx := context.Background()
	if err := f.sessions.SetState(ctx, 1, store.StateAwaitingSearchQuery); err != nil {
		t.Fatal(err)
	}

	if err := f.handlers.SearchQuery(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText, Text: "geometry"}); err != nil {
		t.Fatal(err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateAwaitingSearchQuery {
		t.Errorf("state = %s, an empty result should keep the user refining", state)
	}
}

func TestFallbackSmallTalk(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10"})
	ctx := context.Background()

	cases := []struct {
		text string
		want string
	}{
		{"hello there", "Hello"},
		{"thanks a lot", "welcome"},
		{"who are you?", "About This Bot"},
		{"asdfgh", "didn't understand"},
	}
	for _, tc := range cases {
		if err := f.handlers.Fallback(ctx, &dispatch.Event{Sender: 1, Kind: dispatch.KindText, Text: tc.text}); err != nil {
			t.Fatalf("Fallback(%q): %v", tc.text, err)
		}
		if !strings.Contains(f.sender.last(), tc.want) {
			t.Errorf("Fallback(%q) = %q, want contains %q", tc.text, f.sender.last(), tc.want)
		}
	}
}

func TestStartNewUserEntersClassSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.handlers.Start(ctx, &dispatch.Event{Sender: 5, Kind: dispatch.KindText, Text: "/start"}); err != nil {
		t.Fatal(err)
	}

	state, _ := f.sessions.GetState(ctx, 5)
	if state != store.StateAwaitingClassSelection {
		t.Errorf("state = %s, want awaiting_class_selection", state)
	}
}

func TestPickClassConfirmsAndClears(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: constant.ClassNone})
	ctx := context.Background()
	if err := f.sessions.SetState(ctx, 1, store.StateAwaitingClassSelection); err != nil {
		t.Fatal(err)
	}

	err := f.handlers.PickClass(ctx, &dispatch.Event{
		Sender: 1, Kind: dispatch.KindAction, Action: "class:10",
	})
	if err != nil {
		t.Fatal(err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateIdle {
		t.Error("class pick should end the selection flow")
	}
	u, _ := f.users.FindOne(ctx, specification.ByUserID{ID: 1})
	if u.SelectedClass != "10" {
		t.Errorf("class = %q, want 10", u.SelectedClass)
	}
}

func TestBotStatsAggregates(t *testing.T) {
	now := time.Now().UTC()
	stale := now.Add(-48 * time.Hour)
	f := newFixture(t,
		&entity.User{Id: 1, SelectedClass: "10", LastActive: now},
		&entity.User{Id: 2, SelectedClass: "10", IsPremium: true, LastActive: stale},
		&entity.User{Id: 3, SelectedClass: "10", LastActive: stale},
	)

	err := f.handlers.BotStats(context.Background(), &dispatch.Event{
		Sender: 999, Kind: dispatch.KindText, Text: "/botstats",
	})
	if err != nil {
		t.Fatalf("BotStats: %v", err)
	}

	got := f.sender.last()
	for _, want := range []string{"Total Users:</b> 3", "Total Premium:</b> 1", "Active Today:</b> 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("stats reply missing %q: %q", want, got)
		}
	}
}

func TestPaymentProofReleasesFlow(t *testing.T) {
	f := newFixture(t, &entity.User{Id: 1, SelectedClass: "10"})
	ctx := context.Background()
	if err := f.sessions.SetState(ctx, 1, store.StateAwaitingPaymentProof); err != nil {
		t.Fatal(err)
	}

	err := f.handlers.PaymentProof(ctx, &dispatch.Event{
		Sender: 1, Kind: dispatch.KindMedia, MediaID: "photo-1", MessageID: 77,
	})
	if err != nil {
		t.Fatal(err)
	}

	state, _ := f.sessions.GetState(ctx, 1)
	if state != store.StateIdle {
		t.Error("submitting proof should end the payment flow")
	}
}
