package application

import (
	"context"

	"github.com/roomflow/reservations/internal/reservation/domain"
)

// Ledger is the gateway's view of the reservation ledger's read/write
// contract. Errors carry the apperr taxonomy.
type Ledger interface {
	List(ctx context.Context) ([]domain.Reservation, error)
	Get(ctx context.Context, id int64) (domain.Reservation, error)
	Create(ctx context.Context, room, user string) (domain.Reservation, error)
	Delete(ctx context.Context, id int64) error
}

type AvailabilityChecker interface {
	CheckRoom(ctx context.Context, roomID, date string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}
