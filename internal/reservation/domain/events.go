package domain

import (
	"strconv"
	"time"
)

type EventType string

const (
	ReservationCreated EventType = "RESERVATION_CREATED"
	ReservationDeleted EventType = "RESERVATION_DELETED"
)

type Metadata struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// Event is the body of every message on the reservation topic.
type Event struct {
	Type      EventType   `json:"type"`
	Data      Reservation `json:"data"`
	Metadata  Metadata    `json:"metadata"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEvent(t EventType, r Reservation, meta Metadata) Event {
	return Event{
		Type:      t,
		Data:      r,
		Metadata:  meta,
		Timestamp: time.Now().UTC(),
	}
}

// Key is the partition key: the room, so per-room order is preserved. A
// delete event built from an id-only payload falls back to the id.
func (e Event) Key() string {
	if e.Data.Room != "" {
		return e.Data.Room
	}
	return strconv.FormatInt(e.Data.ID, 10)
}
