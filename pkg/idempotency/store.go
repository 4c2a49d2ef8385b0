package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers processed messages. Unlike a check-and-set guard it
// only records a key once the caller reports success, so a failed message
// is still processed on redelivery.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// MessageKey identifies a message by its log position.
func MessageKey(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// EventKey identifies a message by the producer-assigned event id, which
// survives a republish at a different offset.
func EventKey(eventID string) string {
	return "idem:event:" + eventID
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return MessageKey(topic, partition, offset)
}

func (s *Store) EventKey(eventID string) string {
	return EventKey(eventID)
}

func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) MarkDone(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
