package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is the Redis-backed IdempotencyStore shared across replicas.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

var _ IdempotencyStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing Redis client. The prefix namespaces keys so
// multiple deployments can share one Redis instance.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *RedisStore) Remember(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	created, err := s.client.SetNX(ctx, s.key(key), value, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if created {
		return value, true, nil
	}

	existing, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		// Expired between SetNX and Get; treat as fresh.
		return s.Remember(ctx, key, value, ttl)
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	return existing, false, nil
}

func (s *RedisStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("drop idempotency key: %w", err)
	}
	return nil
}
