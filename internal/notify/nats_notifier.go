package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"studybot/internal/pkg/logger"
)

const (
	alertStream      = "ALERTS"
	subjectOps       = "alerts.ops"
	subjectPayment   = "alerts.payment"
	connectStreamTTL = 5 * time.Second
)

type alertMessage struct {
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	OccurredAt time.Time `json:"occurred_at"`
}

type paymentMessage struct {
	UserID     int64     `json:"user_id"`
	MediaID    string    `json:"media_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NATSNotifier publishes operator signals onto a JetStream stream so a
// review tool can consume them durably.
type NATSNotifier struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log logger.ILogger
}

func NewNATSNotifier(url string, log logger.ILogger) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectStreamTTL)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      alertStream,
		Subjects:  []string{"alerts.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
	})
	if err != nil {
		// The stream may already exist or NATS may still be starting up.
		log.Warn("notify", "failed to ensure alert stream", map[string]interface{}{
			"stream": alertStream,
			"error":  err.Error(),
		})
	}

	return &NATSNotifier{nc: nc, js: js, log: log}, nil
}

func (n *NATSNotifier) Alert(ctx context.Context, subject, body string) error {
	return n.publish(ctx, subjectOps, alertMessage{
		Subject:    subject,
		Body:       body,
		OccurredAt: time.Now().UTC(),
	})
}

func (n *NATSNotifier) PaymentSubmitted(ctx context.Context, userID int64, mediaID string) error {
	return n.publish(ctx, subjectPayment, paymentMessage{
		UserID:     userID,
		MediaID:    mediaID,
		OccurredAt: time.Now().UTC(),
	})
}

func (n *NATSNotifier) publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}
	if _, err := n.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

func (n *NATSNotifier) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}
