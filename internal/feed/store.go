// Package feed projects ledger events into the human-readable activity
// feed served by the API. The feed is a capped, newest-first list; it
// is rebuilt from delivered events and holds no authoritative state.
package feed

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	entriesKey  = "feed:entries"
	dedupPrefix = "feed:dedup:"
)

// Store persists feed entries and remembers which events were already
// projected, since the broker may redeliver.
type Store interface {
	// Remember claims an event id and reports whether this is its first
	// delivery.
	Remember(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	// Forget releases a claimed event id so a redelivery can retry.
	Forget(ctx context.Context, eventID string) error
	// Push prepends a serialized entry and trims the list to max.
	Push(ctx context.Context, entry []byte, max int) error
	// Recent returns up to limit serialized entries, newest first.
	Recent(ctx context.Context, limit int) ([][]byte, error)
}

// RedisStore implements Store on a Redis list plus SETNX dedup keys.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Remember(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, dedupPrefix+eventID, 1, ttl).Result()
}

func (s *RedisStore) Forget(ctx context.Context, eventID string) error {
	return s.rdb.Del(ctx, dedupPrefix+eventID).Err()
}

func (s *RedisStore) Push(ctx context.Context, entry []byte, max int) error {
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, entriesKey, entry)
	pipe.LTrim(ctx, entriesKey, 0, int64(max-1))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([][]byte, error) {
	values, err := s.rdb.LRange(ctx, entriesKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([][]byte, len(values))
	for i, v := range values {
		entries[i] = []byte(v)
	}
	return entries, nil
}

var _ Store = (*RedisStore)(nil)
