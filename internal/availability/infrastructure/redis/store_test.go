package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomflow/reservations/internal/availability/domain"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)), rdb, "rooms"), mr
}

func TestAvailability(t *testing.T) {
	s, mr := newStore(t)
	mr.HSet("rooms", "101", "0")
	mr.HSet("rooms", "102", "1")
	ctx := context.Background()

	available, found, err := s.Availability(ctx, "101")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, available)

	available, found, err = s.Availability(ctx, "102")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, available)

	_, found, err = s.Availability(ctx, "404")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSeedKeepsExistingValues(t *testing.T) {
	s, mr := newStore(t)
	mr.HSet("rooms", "101", "1")

	require.NoError(t, s.Seed(context.Background(), domain.DefaultRooms))

	assert.Equal(t, "1", mr.HGet("rooms", "101"))
	assert.Equal(t, "1", mr.HGet("rooms", "102"))
	assert.Equal(t, "0", mr.HGet("rooms", "103"))
}

func TestAvailabilityUnreachable(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	_, _, err := s.Availability(context.Background(), "102")
	assert.Error(t, err)
}
