package memory

import (
	"context"
	"sync"

	"github.com/roomflow/reservations/internal/availability/domain"
)

type Store struct {
	mu    sync.RWMutex
	rooms map[string]bool
	// Err, when set, is returned by every read.
	Err error
}

func NewStore(rooms ...domain.Room) *Store {
	s := &Store{rooms: make(map[string]bool, len(rooms))}
	for _, r := range rooms {
		s.rooms[r.ID] = r.Available
	}
	return s
}

func (s *Store) Availability(_ context.Context, roomID string) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return false, false, s.Err
	}
	available, ok := s.rooms[roomID]
	return available, ok, nil
}

func (s *Store) Seed(_ context.Context, rooms []domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rooms {
		if _, ok := s.rooms[r.ID]; !ok {
			s.rooms[r.ID] = r.Available
		}
	}
	return nil
}

// Set changes a room; it stands in for the administrative process.
func (s *Store) Set(roomID string, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = available
}
