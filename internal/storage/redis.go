package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"repo-pulse/internal/history"
)

const defaultRedisKey = "repo-pulse:history"

type redisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisBackend stores the History document as a single string value.
type RedisBackend struct {
	client  redisCommander
	closeFn func() error
	key     string
}

// NewRedisBackend connects to the Redis instance described by url (redis://...).
func NewRedisBackend(url, key string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return newRedisBackend(client, client.Close, key), nil
}

func newRedisBackend(client redisCommander, closeFn func() error, key string) *RedisBackend {
	if key == "" {
		key = defaultRedisKey
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &RedisBackend{client: client, closeFn: closeFn, key: key}
}

func (b *RedisBackend) Load(ctx context.Context) (history.History, error) {
	raw, err := b.client.Get(ctx, b.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return decode(raw)
}

func (b *RedisBackend) Save(ctx context.Context, h history.History) error {
	data, err := encode(h)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	if b == nil || b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}
