package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	reservation "github.com/roomflow/reservations/internal/reservation/domain"
)

func TestFromEvent(t *testing.T) {
	created := reservation.Event{
		Type: reservation.ReservationCreated,
		Data: reservation.Reservation{ID: 7, Room: "102", User: "bob"},
	}
	n, ok := FromEvent(created)
	assert.True(t, ok)
	assert.Equal(t, "Reservation confirmed", n.Subject)
	assert.Equal(t, "Reservation #7: room 102 booked for bob", n.Message)

	minimal := reservation.Event{Type: reservation.ReservationDeleted, Data: reservation.Reservation{ID: 7}}
	n, ok = FromEvent(minimal)
	assert.True(t, ok)
	assert.Equal(t, "Reservation #7 cancelled", n.Message)

	_, ok = FromEvent(reservation.Event{Type: "ROOM_PAINTED"})
	assert.False(t, ok)
}
