package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/roomflow/reservations/pkg/apperr"
)

// Reservation is immutable once the ledger has assigned its id.
type Reservation struct {
	ID        int64     `json:"id"`
	Room      string    `json:"room,omitempty"`
	User      string    `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type NewReservation struct {
	Room string
	User string
}

// Validate trims and checks the inputs of a create request.
func (n NewReservation) Validate() (NewReservation, error) {
	n.Room = strings.TrimSpace(n.Room)
	n.User = strings.TrimSpace(n.User)
	if n.Room == "" || n.User == "" {
		return n, fmt.Errorf("%w: room and user are required", apperr.ErrInvalidArgument)
	}
	return n, nil
}
