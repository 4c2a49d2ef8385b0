package application

import (
	"context"

	"github.com/roomflow/reservations/internal/reservation/domain"
)

// ReservationRepository assigns ids and creation times. Each method is a
// single store operation; nothing spans calls.
type ReservationRepository interface {
	Create(ctx context.Context, n domain.NewReservation) (domain.Reservation, error)
	List(ctx context.Context) ([]domain.Reservation, error)
	Get(ctx context.Context, id int64) (domain.Reservation, error)
	Delete(ctx context.Context, id int64) error
}

type AvailabilityChecker interface {
	CheckRoom(ctx context.Context, roomID, date string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}
