package domain

import (
	"fmt"

	reservation "github.com/roomflow/reservations/internal/reservation/domain"
)

type Notification struct {
	Subject string
	Message string
}

// FromEvent renders the notice for a reservation event. ok is false for
// event types nobody is notified about.
func FromEvent(ev reservation.Event) (n Notification, ok bool) {
	r := ev.Data
	switch ev.Type {
	case reservation.ReservationCreated:
		return Notification{
			Subject: "Reservation confirmed",
			Message: fmt.Sprintf("Reservation #%d: room %s booked for %s", r.ID, r.Room, r.User),
		}, true
	case reservation.ReservationDeleted:
		msg := fmt.Sprintf("Reservation #%d cancelled", r.ID)
		if r.Room != "" {
			msg = fmt.Sprintf("Reservation #%d: room %s released by %s", r.ID, r.Room, r.User)
		}
		return Notification{Subject: "Reservation cancelled", Message: msg}, true
	default:
		return Notification{}, false
	}
}
