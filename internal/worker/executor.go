package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"studybot/internal/pkg/logger"
	"studybot/internal/reply"
	"studybot/internal/transport"
)

// ErrBusy reports that the user already has a job in flight.
var ErrBusy = errors.New("worker: user already has a job in flight")

// Job is one unit of deferred work. Name selects the registered handler;
// Args carries whatever the handler needs, kept to strings so the payload
// survives serialization unchanged.
type Job struct {
	ID     string            `json:"id"`
	UserID int64             `json:"user_id"`
	Name   string            `json:"name"`
	Args   map[string]string `json:"args"`
}

type JobHandler func(ctx context.Context, job *Job) error

// Executor runs jobs off the dispatch path. Scheduling is fire-and-forget
// from the caller's perspective, with one guard: a user can have at most
// one job in flight, so a double-tap cannot double-spend or interleave
// replies.
type Executor struct {
	pubSub *gochannel.GoChannel
	topic  string
	sender transport.Sender
	log    logger.ILogger

	mu       sync.Mutex
	inflight map[int64]struct{}
	handlers map[string]JobHandler
}

func NewExecutor(pubSub *gochannel.GoChannel, topic string, sender transport.Sender, log logger.ILogger) *Executor {
	return &Executor{
		pubSub:   pubSub,
		topic:    topic,
		sender:   sender,
		log:      log,
		inflight: make(map[int64]struct{}),
		handlers: make(map[string]JobHandler),
	}
}

// Register binds a handler to a job name. Call before Run.
func (e *Executor) Register(name string, h JobHandler) {
	e.handlers[name] = h
}

// InFlight reports whether the user currently has a job running.
func (e *Executor) InFlight(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.inflight[userID]
	return busy
}

func (e *Executor) claim(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[userID]; busy {
		return false
	}
	e.inflight[userID] = struct{}{}
	return true
}

func (e *Executor) release(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, userID)
}

// Schedule enqueues a job. Returns ErrBusy without publishing when the
// user already has one running.
func (e *Executor) Schedule(ctx context.Context, job *Job) error {
	if !e.claim(job.UserID) {
		return ErrBusy
	}

	payload, err := json.Marshal(job)
	if err != nil {
		e.release(job.UserID)
		return err
	}

	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	if err := e.pubSub.Publish(e.topic, message.NewMessage(id, payload)); err != nil {
		e.release(job.UserID)
		return err
	}
	return nil
}

// Run subscribes to the job topic and processes messages until the context
// is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	messages, err := e.pubSub.Subscribe(ctx, e.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			e.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (e *Executor) processMessage(ctx context.Context, msg *message.Message) {
	// Chat jobs are ack-always: a failed job apologizes to the user, it is
	// never redelivered.
	defer msg.Ack()

	var job Job
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		e.log.Error("worker", "failed to unmarshal job", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer e.release(job.UserID)

	handler, ok := e.handlers[job.Name]
	if !ok {
		e.log.Error("worker", "no handler registered for job", map[string]interface{}{
			"job": job.Name,
		})
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("worker", "job panicked", map[string]interface{}{
				"job":     job.Name,
				"user_id": job.UserID,
				"panic":   fmt.Sprintf("%v", rec),
			})
			e.apologize(ctx, job.UserID)
		}
	}()

	if err := handler(ctx, &job); err != nil {
		e.log.Error("worker", "job failed", map[string]interface{}{
			"job":     job.Name,
			"user_id": job.UserID,
			"error":   err.Error(),
		})
		e.apologize(ctx, job.UserID)
	}
}

func (e *Executor) apologize(ctx context.Context, userID int64) {
	if err := e.sender.SendMessage(ctx, userID, reply.GenericError, nil); err != nil {
		e.log.Error("worker", "failed to deliver error reply", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
