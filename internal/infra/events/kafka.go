// Package events publishes domain events to Kafka. Delivery is best-effort
// from the saga's point of view: the orchestrator logs a failed publish and
// keeps the committed state.
package events

import (
	"context"
	"encoding/json"
	"time"

	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/errs"
	"marketplace/internal/usecase/commands"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// envelope is the wire shape shared by all published events.
type envelope struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	value, err := json.Marshal(envelope{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return errs.Wrap(err, "failed to encode event")
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errs.Wrap(err, "failed to publish event")
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ commands.EventPublisher = (*KafkaPublisher)(nil)
