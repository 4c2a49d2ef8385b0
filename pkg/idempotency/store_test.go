package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Minute), mr
}

func TestSeenOnlyAfterMarkDone(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	key := s.EventKey("e-1")

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	// a second check without MarkDone must still report unseen
	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.MarkDone(ctx, key))
	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMarkDoneExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)
	key := s.Key("reservation-events", 2, 41)
	assert.Equal(t, "idem:reservation-events:2:41", key)

	require.NoError(t, s.MarkDone(ctx, key))
	mr.FastForward(2 * time.Minute)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSeenSurfacesRedisErrors(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	_, err := s.Seen(context.Background(), s.EventKey("e-2"))
	assert.Error(t, err)
}
