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

// Mode selects who owns the reservation workflow.
type Mode string

const (
	// ModeDelegate hands creates and deletes to the ledger, which checks
	// availability and emits events itself.
	ModeDelegate Mode = "delegate"
	// ModeDirect runs the availability check and event emission here and
	// uses the ledger only as storage. The ledger must run with event
	// publishing disabled, or every change is announced twice.
	ModeDirect Mode = "direct"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeDelegate, ModeDirect:
		return m, nil
	case "":
		return ModeDelegate, nil
	default:
		return "", fmt.Errorf("%w: unknown gateway mode %q", apperr.ErrInvalidArgument, s)
	}
}

var (
	ErrRoomUnavailable = fmt.Errorf("%w: room not available", apperr.ErrConflict)
	errInternal        = fmt.Errorf("%w: internal server error", apperr.ErrInternal)
)

type Options struct {
	Mode           Mode
	ServiceName    string
	EventVersion   string
	OracleTimeout  time.Duration
	PublishTimeout time.Duration
}

type Orchestrator struct {
	log    *slog.Logger
	ledger Ledger
	oracle AvailabilityChecker
	pub    EventPublisher
	opts   Options
	tracer trace.Tracer
}

// NewOrchestrator builds the gateway façade. oracle and pub are only used in
// ModeDirect and may be nil otherwise.
func NewOrchestrator(log *slog.Logger, ledger Ledger, oracle AvailabilityChecker, pub EventPublisher, opts Options) *Orchestrator {
	if opts.Mode == "" {
		opts.Mode = ModeDelegate
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = 2 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.EventVersion == "" {
		opts.EventVersion = "1.0"
	}
	return &Orchestrator{
		log:    log,
		ledger: ledger,
		oracle: oracle,
		pub:    pub,
		opts:   opts,
		tracer: otel.Tracer("gateway"),
	}
}

func (o *Orchestrator) Mode() Mode { return o.opts.Mode }

func (o *Orchestrator) Reservations(ctx context.Context) ([]domain.Reservation, error) {
	list, err := o.ledger.List(ctx)
	if err != nil {
		return nil, o.mapErr("list reservations", err)
	}
	return list, nil
}

func (o *Orchestrator) ReservationsByUser(ctx context.Context, user string) ([]domain.Reservation, error) {
	list, err := o.Reservations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Reservation, 0, len(list))
	for _, r := range list {
		if r.User == user {
			out = append(out, r)
		}
	}
	return out, nil
}

// Reservation returns nil without error when the id is unknown.
func (o *Orchestrator) Reservation(ctx context.Context, id int64) (*domain.Reservation, error) {
	r, err := o.ledger.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, o.mapErr("get reservation", err)
	}
	return &r, nil
}

func (o *Orchestrator) CreateReservation(ctx context.Context, room, user string) (domain.Reservation, error) {
	ctx, span := o.tracer.Start(ctx, "Gateway.CreateReservation", trace.WithAttributes(
		attribute.String("room", room),
		attribute.String("mode", string(o.opts.Mode)),
	))
	defer span.End()

	in, err := domain.NewReservation{Room: room, User: user}.Validate()
	if err != nil {
		return domain.Reservation{}, err
	}

	if o.opts.Mode == ModeDirect && !o.available(ctx, in.Room) {
		return domain.Reservation{}, ErrRoomUnavailable
	}

	r, err := o.ledger.Create(ctx, in.Room, in.User)
	if err != nil {
		return domain.Reservation{}, o.mapErr("create reservation", err)
	}

	if o.opts.Mode == ModeDirect {
		o.notify(ctx, domain.NewEvent(domain.ReservationCreated, r, o.metadata()))
	}
	return r, nil
}

// DeleteReservation reports whether the ledger removed the reservation. An
// unknown id is false, not an error.
func (o *Orchestrator) DeleteReservation(ctx context.Context, id int64) (bool, error) {
	ctx, span := o.tracer.Start(ctx, "Gateway.DeleteReservation", trace.WithAttributes(
		attribute.Int64("reservation_id", id),
		attribute.String("mode", string(o.opts.Mode)),
	))
	defer span.End()

	snapshot := domain.Reservation{ID: id}
	if o.opts.Mode == ModeDirect {
		if r, err := o.ledger.Get(ctx, id); err == nil {
			snapshot = r
		} else {
			o.log.Warn("snapshot lookup failed before delete", "reservation_id", id, "err", err)
		}
	}

	err := o.ledger.Delete(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, o.mapErr("delete reservation", err)
	}

	if o.opts.Mode == ModeDirect {
		o.notify(ctx, domain.NewEvent(domain.ReservationDeleted, snapshot, o.metadata()))
	}
	return true, nil
}

func (o *Orchestrator) available(ctx context.Context, room string) bool {
	if o.oracle == nil {
		return availability.FailClosed
	}
	ctx, cancel := context.WithTimeout(ctx, o.opts.OracleTimeout)
	defer cancel()

	ok, err := o.oracle.CheckRoom(ctx, room, time.Now().UTC().Format(time.DateOnly))
	if err != nil {
		o.log.Warn("availability check failed, rejecting", "room", room, "err", err)
		return availability.FailClosed
	}
	return ok
}

func (o *Orchestrator) notify(ctx context.Context, ev domain.Event) {
	if o.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.PublishTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("event publish panicked", "type", ev.Type, "reservation_id", ev.Data.ID, "panic", r)
		}
	}()

	if err := o.pub.Publish(ctx, ev); err != nil {
		o.log.Error("event publish failed (non-blocking)", "type", ev.Type, "reservation_id", ev.Data.ID, "err", err)
	}
}

// mapErr keeps conflicts and validation errors for the caller and hides
// everything else behind a generic internal error.
func (o *Orchestrator) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return ErrRoomUnavailable
	case errors.Is(err, apperr.ErrInvalidArgument), errors.Is(err, apperr.ErrNotFound):
		return err
	default:
		o.log.Error(op+" failed", "err", err)
		return errInternal
	}
}

func (o *Orchestrator) metadata() domain.Metadata {
	return domain.Metadata{Service: o.opts.ServiceName, Version: o.opts.EventVersion}
}
