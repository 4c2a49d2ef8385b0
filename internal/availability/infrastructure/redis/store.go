package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/roomflow/reservations/internal/availability/domain"
)

// Store keeps room availability in a single hash: field = room id,
// value = "1" (available) or "0".
type Store struct {
	log *slog.Logger
	rdb redis.Cmdable
	key string
}

func NewStore(log *slog.Logger, rdb redis.Cmdable, key string) *Store {
	return &Store{log: log, rdb: rdb, key: key}
}

func (s *Store) Availability(ctx context.Context, roomID string) (bool, bool, error) {
	v, err := s.rdb.HGet(ctx, s.key, roomID).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return v == "1" || v == "true", true, nil
}

// Seed adds rooms that are not present yet; existing values win.
func (s *Store) Seed(ctx context.Context, rooms []domain.Room) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, r := range rooms {
			p.HSetNX(ctx, s.key, r.ID, encode(r.Available))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("rooms seeded", "key", s.key, "count", len(rooms))
	return nil
}

func encode(available bool) string {
	if available {
		return "1"
	}
	return "0"
}
