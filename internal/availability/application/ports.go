package application

import (
	"context"

	"github.com/roomflow/reservations/internal/availability/domain"
)

type RoomStore interface {
	// Availability reports found=false for a room the store has never seen.
	Availability(ctx context.Context, roomID string) (available bool, found bool, err error)
	Seed(ctx context.Context, rooms []domain.Room) error
}
