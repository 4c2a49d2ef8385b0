package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomflow/reservations/internal/reservation/domain"
	"github.com/roomflow/reservations/pkg/apperr"
)

func TestIDsAreMonotonicAcrossDeletes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	a, err := repo.Create(ctx, domain.NewReservation{Room: "102", User: "bob"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, domain.NewReservation{Room: "102", User: "alice"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, b.ID))
	c, err := repo.Create(ctx, domain.NewReservation{Room: "103", User: "carol"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Greater(t, c.ID, b.ID)
	assert.False(t, a.CreatedAt.IsZero())

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []int64{a.ID, c.ID}, []int64{list[0].ID, list[1].ID})
}

func TestGetAndDeleteMissing(t *testing.T) {
	repo := NewRepository()
	_, err := repo.Get(context.Background(), 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), 999), apperr.ErrNotFound)
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	repo := NewRepository()
	var wg sync.WaitGroup
	ids := make(chan int64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := repo.Create(context.Background(), domain.NewReservation{Room: "102", User: "u"})
			if err == nil {
				ids <- r.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 50)
}
