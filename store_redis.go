package tiered

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient captures the subset of redis.Client used by the store.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var errRedisUnavailable = errors.New("redis store client unavailable")

type redisStore struct {
	client RedisClient
	prefix string
}

func newRedisStore(client RedisClient, prefix string) Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *redisStore) Driver() Driver {
	return DriverRedis
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errRedisUnavailable
	}
	value, err := s.client.Get(ctx, s.storeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set writes with expiration 0 (persist).
func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if s.client == nil {
		return errRedisUnavailable
	}
	return s.client.Set(ctx, s.storeKey(key), value, 0).Err()
}

func (s *redisStore) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if s.client == nil {
		return 0, errRedisUnavailable
	}
	return s.client.IncrBy(ctx, s.storeKey(key), delta).Result()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errRedisUnavailable
	}
	return s.client.Del(ctx, s.storeKey(key)).Err()
}

func (s *redisStore) storeKey(key string) string {
	return s.prefix + ":" + key
}
