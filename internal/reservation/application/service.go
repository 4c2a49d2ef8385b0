package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	availability "github.com/roomflow/reservations/internal/availability/domain"
	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/apperr"
)

var ErrRoomUnavailable = fmt.Errorf("%w: room not available", apperr.ErrConflict)

type Options struct {
	ServiceName    string
	EventVersion   string
	OracleTimeout  time.Duration
	PublishTimeout time.Duration
}

type Service struct {
	log    *slog.Logger
	repo   ReservationRepository
	oracle AvailabilityChecker
	pub    EventPublisher
	opts   Options
	tracer trace.Tracer
}

// NewService builds the ledger. pub may be nil when another component owns
// event emission.
func NewService(log *slog.Logger, repo ReservationRepository, oracle AvailabilityChecker, pub EventPublisher, opts Options) *Service {
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = 2 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.EventVersion == "" {
		opts.EventVersion = "1.0"
	}
	return &Service{
		log:    log,
		repo:   repo,
		oracle: oracle,
		pub:    pub,
		opts:   opts,
		tracer: otel.Tracer("reservation-ledger"),
	}
}

func (s *Service) Create(ctx context.Context, room, user string) (domain.Reservation, error) {
	in, err := domain.NewReservation{Room: room, User: user}.Validate()
	if err != nil {
		return domain.Reservation{}, err
	}

	ctx, span := s.tracer.Start(ctx, "Ledger.Create", trace.WithAttributes(attribute.String("room", in.Room)))
	defer span.End()

	if !s.available(ctx, in.Room) {
		return domain.Reservation{}, ErrRoomUnavailable
	}

	r, err := s.repo.Create(ctx, in)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("persist reservation: %w", err)
	}
	s.log.Info("reservation created", "reservation_id", r.ID, "room", r.Room, "user", r.User)

	s.notify(ctx, domain.NewEvent(domain.ReservationCreated, r, s.metadata()))
	return r, nil
}

// available asks the oracle under OracleTimeout. Any failure is answered
// with the fail-closed policy.
func (s *Service) available(ctx context.Context, room string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OracleTimeout)
	defer cancel()

	ok, err := s.oracle.CheckRoom(ctx, room, time.Now().UTC().Format(time.DateOnly))
	if err != nil {
		s.log.Warn("availability check failed, rejecting", "room", room, "err", err)
		return availability.FailClosed
	}
	return ok
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "Ledger.Delete", trace.WithAttributes(attribute.Int64("reservation_id", id)))
	defer span.End()

	snapshot, err := s.repo.Get(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return err
	case err != nil:
		s.log.Warn("snapshot lookup failed before delete", "reservation_id", id, "err", err)
		snapshot = domain.Reservation{ID: id}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("reservation deleted", "reservation_id", id)

	s.notify(ctx, domain.NewEvent(domain.ReservationDeleted, snapshot, s.metadata()))
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.Reservation, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListByUser(ctx context.Context, user string) ([]domain.Reservation, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Reservation, 0, len(all))
	for _, r := range all {
		if r.User == user {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Reservation, error) {
	return s.repo.Get(ctx, id)
}

// notify is the boundary between the committed write and the event log:
// nothing that happens here reaches the caller.
func (s *Service) notify(ctx context.Context, ev domain.Event) {
	if s.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("event publish panicked", "type", ev.Type, "reservation_id", ev.Data.ID, "panic", r)
		}
	}()

	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Error("event publish failed (non-blocking)", "type", ev.Type, "reservation_id", ev.Data.ID, "err", err)
		return
	}
	s.log.Debug("event published", "type", ev.Type, "reservation_id", ev.Data.ID, "key", ev.Key())
}

func (s *Service) metadata() domain.Metadata {
	return domain.Metadata{Service: s.opts.ServiceName, Version: s.opts.EventVersion}
}
