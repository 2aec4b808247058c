package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"studybot/internal/pkg/logger"
	"studybot/internal/transport"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (s *fakeSender) SendMessage(_ context.Context, _ int64, text string, _ *transport.Keyboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, text)
	return nil
}

func (s *fakeSender) EditMessage(context.Context, int64, int, string, *transport.Keyboard) error {
	return nil
}
func (s *fakeSender) ForwardMessage(context.Context, int64, int64, int) error { return nil }
func (s *fakeSender) AnswerCallback(context.Context, string, string) error    { return nil }

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func newTestExecutor(t *testing.T) (*Executor, *fakeSender, func()) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	sender := &fakeSender{}
	exec := NewExecutor(pubSub, "jobs.test", sender, logger.NewNopLogger())
	return exec, sender, func() { pubSub.Close() }
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestScheduleRunsHandler(t *testing.T) {
	exec, _, cleanup := newTestExecutor(t)
	defer cleanup()

	done := make(chan *Job, 1)
	exec.Register("echo", func(_ context.Context, job *Job) error {
		done <- job
		return nil
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := exec.Schedule(context.Background(), &Job{
		UserID: 1,
		Name:   "echo",
		Args:   map[string]string{"prompt": "hi"},
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case job := <-done:
		if job.Args["prompt"] != "hi" {
			t.Errorf("args lost in transit: %v", job.Args)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	waitFor(t, func() bool { return !exec.InFlight(1) })
}

func TestScheduleRefusesOverlap(t *testing.T) {
	exec, _, cleanup := newTestExecutor(t)
	defer cleanup()

	block := make(chan struct{})
	started := make(chan struct{})
	exec.Register("slow", func(context.Context, *Job) error {
		close(started)
		<-block
		return nil
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := exec.Schedule(context.Background(), &Job{UserID: 1, Name: "slow"}); err != nil {
		t.Fatal(err)
	}
	<-started

	if err := exec.Schedule(context.Background(), &Job{UserID: 1, Name: "slow"}); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	// A different user is unaffected.
	if err := exec.Schedule(context.Background(), &Job{UserID: 2, Name: "slow"}); err != nil {
		t.Errorf("other user blocked: %v", err)
	}

	close(block)
	waitFor(t, func() bool { return !exec.InFlight(1) })

	if err := exec.Schedule(context.Background(), &Job{UserID: 1, Name: "slow"}); err != nil {
		t.Errorf("user still marked busy after completion: %v", err)
	}
}

func TestFailedJobApologizes(t *testing.T) {
	exec, sender, cleanup := newTestExecutor(t)
	defer cleanup()

	exec.Register("fails", func(context.Context, *Job) error {
		return errors.New("model exploded")
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := exec.Schedule(context.Background(), &Job{UserID: 1, Name: "fails"}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return sender.count() == 1 })
	waitFor(t, func() bool { return !exec.InFlight(1) })
}

func TestPanickingJobIsContained(t *testing.T) {
	exec, sender, cleanup := newTestExecutor(t)
	defer cleanup()

	exec.Register("boom", func(context.Context, *Job) error {
		panic("boom")
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := exec.Schedule(context.Background(), &Job{UserID: 1, Name: "boom"}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return sender.count() == 1 })
	waitFor(t, func() bool { return !exec.InFlight(1) })
}
