package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/tracing"
)

const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

type Sender interface {
	Send(ctx context.Context, topic, key string, value []byte, headers []kafka.Header) error
}

// Publisher turns domain events into keyed messages on one topic.
type Publisher struct {
	log    *slog.Logger
	sender Sender
	topic  string
}

func NewPublisher(log *slog.Logger, sender Sender, topic string) *Publisher {
	return &Publisher{log: log, sender: sender, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}

	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(ev.Type)},
		{Key: HeaderEventID, Value: []byte(uuid.NewString())},
	}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	if err := p.sender.Send(ctx, p.topic, ev.Key(), payload, headers); err != nil {
		return err
	}
	p.log.Info("event dispatched", "type", ev.Type, "topic", p.topic, "key", ev.Key())
	return nil
}
