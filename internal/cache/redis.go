package cache

import (
	"context"
	"encoding/json"
	"time"

	"infraction-insights/internal/common/database"
	"infraction-insights/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session entries in Redis. A TTL backstop evicts entries
// the timestamp check would reject anyway, keeping memory bounded.
type RedisStore struct {
	client   *database.RedisClient
	prefix   string
	backstop time.Duration
	logger   logger.Logger
}

// NewRedisStore creates a store on the shared Redis client.
func NewRedisStore(client *database.RedisClient, prefix string, backstop time.Duration, log logger.Logger) *RedisStore {
	if backstop <= 0 {
		backstop = 24 * time.Hour
	}
	return &RedisStore{
		client:   client,
		prefix:   prefix,
		backstop: backstop,
		logger:   log,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool) {
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// Unreadable entry, drop it.
		_ = s.client.Del(ctx, key)
		return nil, false
	}

	if time.Since(env.Timestamp) > maxAge {
		_ = s.client.Del(ctx, key)
		return nil, false
	}

	return env.Value, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	env := envelope{Timestamp: time.Now().UTC(), Value: value}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, s.backstop)
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	pattern := s.prefix + ":" + sessionID + ":*"

	var cursor uint64
	for {
		keys, next, err := s.client.GetClient().Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
