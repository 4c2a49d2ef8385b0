package application

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roomflow/reservations/internal/notification/domain"
	reservation "github.com/roomflow/reservations/internal/reservation/domain"
)

type Service struct {
	log       *slog.Logger
	sender    Sender
	processed ProcessedStore
	tracer    trace.Tracer
}

// NewService wires the side effect. processed may be nil, in which case a
// redelivered event notifies again.
func NewService(log *slog.Logger, sender Sender, processed ProcessedStore) *Service {
	return &Service{
		log:       log,
		sender:    sender,
		processed: processed,
		tracer:    otel.Tracer("notification-service"),
	}
}

// Handle applies the side effect for ev. A nil return means the event may
// be committed; an error means it must be delivered again.
func (s *Service) Handle(ctx context.Context, ev reservation.Event, key string) error {
	ctx, span := s.tracer.Start(ctx, "Notification.Handle", trace.WithAttributes(
		attribute.String("event_type", string(ev.Type)),
		attribute.Int64("reservation_id", ev.Data.ID),
	))
	defer span.End()

	n, ok := domain.FromEvent(ev)
	if !ok {
		s.log.Warn("unknown event type, skipping", "type", ev.Type, "reservation_id", ev.Data.ID)
		return nil
	}

	if s.alreadyProcessed(ctx, key) {
		s.log.Info("duplicate event skipped", "key", key, "type", ev.Type)
		return nil
	}

	if err := s.sender.Notify(ctx, n.Subject, n.Message); err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify %s for reservation %d: %w", ev.Type, ev.Data.ID, err)
	}

	if s.processed != nil && key != "" {
		if err := s.processed.MarkDone(ctx, key); err != nil {
			// the notice went out; a redelivery may repeat it
			s.log.Warn("mark processed failed", "key", key, "err", err)
		}
	}
	return nil
}

func (s *Service) alreadyProcessed(ctx context.Context, key string) bool {
	if s.processed == nil || key == "" {
		return false
	}
	seen, err := s.processed.Seen(ctx, key)
	if err != nil {
		s.log.Warn("idempotency check failed, processing anyway", "key", key, "err", err)
		return false
	}
	return seen
}
