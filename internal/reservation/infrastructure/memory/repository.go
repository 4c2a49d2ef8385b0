package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/apperr"
)

// Repository keeps reservations in insertion order. Ids are never reused,
// even after a delete.
type Repository struct {
	mu     sync.RWMutex
	nextID int64
	items  []domain.Reservation
}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Create(_ context.Context, n domain.NewReservation) (domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	res := domain.Reservation{
		ID:        r.nextID,
		Room:      n.Room,
		User:      n.User,
		CreatedAt: time.Now().UTC(),
	}
	r.items = append(r.items, res)
	return res, nil
}

func (r *Repository) List(_ context.Context) ([]domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Reservation, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *Repository) Get(_ context.Context, id int64) (domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.items {
		if res.ID == id {
			return res, nil
		}
	}
	return domain.Reservation{}, fmt.Errorf("%w: reservation %d", apperr.ErrNotFound, id)
}

func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, res := range r.items {
		if res.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: reservation %d", apperr.ErrNotFound, id)
}
