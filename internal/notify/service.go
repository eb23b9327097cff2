package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-shop-saga.git/internal/kafka"
	"github.com/ariefcatur/go-shop-saga.git/internal/redisx"
)

var ErrNotFound = errors.New("notification not found")

const (
	TopicDispatch = "notify.dispatch"

	EventNotificationQueued = "NotificationQueued"
)

type Notification struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Recipient   string          `json:"to"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
}

type Store interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	MarkDelivered(ctx context.Context, id string) error
	ListByRecipient(ctx context.Context, to string) ([]Notification, error)
}

// Envelope mirrors the order service's event envelope.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type QueuedPayload struct {
	NotificationID string `json:"notification_id"`
	Type           string `json:"type"`
	To             string `json:"to"`
}

// Service accepts notifications over HTTP, records them, and hands delivery
// off to a Kafka consumer. The HTTP caller gets {sent:true} as soon as the
// record exists; delivery is asynchronous by design.
type Service struct {
	Store       Store
	Producer    *kafkax.Producer
	ServiceName string
	Log         *zap.Logger
}

func (s *Service) Record(ctx context.Context, typ, to string, payload json.RawMessage) (Notification, error) {
	if typ == "" {
		return Notification{}, fmt.Errorf("type is required")
	}
	n, err := s.Store.Insert(ctx, Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Recipient: to,
		Payload:   payload,
	})
	if err != nil {
		return Notification{}, err
	}
	s.Log.Info("notification recorded", zap.String("id", n.ID), zap.String("type", n.Type), zap.String("to", n.Recipient))

	if s.Producer != nil {
		ev := Envelope{
			EventID:       uuid.NewString(),
			EventType:     EventNotificationQueued,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      s.ServiceName,
			CorrelationID: n.ID,
			Payload:       kafkax.MustMarshal(QueuedPayload{NotificationID: n.ID, Type: n.Type, To: n.Recipient}),
		}
		s.Producer.Publish([]byte(n.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(EventNotificationQueued)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
	return n, nil
}

// Dispatcher consumes queued notifications and marks them delivered. In
// this demo "delivery" is a log line standing in for email/push.
type Dispatcher struct {
	Store Store
	Redis *redis.Client
	Log   *zap.Logger
}

func (d *Dispatcher) HandleQueued(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != EventNotificationQueued {
		return nil // ignore
	}

	// dedup on event_id: redelivery after a consumer crash must not
	// double-deliver
	dkey := fmt.Sprintf(redisx.KeyDedup, "notify", env.EventID)
	if exists, _ := redisx.Exists(ctx, d.Redis, dkey); exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[QueuedPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := d.Store.MarkDelivered(ctx, p.NotificationID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	d.Log.Info("notification delivered",
		zap.String("id", p.NotificationID),
		zap.String("type", p.Type),
		zap.String("to", p.To))

	_ = d.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
