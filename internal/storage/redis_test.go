package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-pulse/internal/history"
)

type fakeRedis struct {
	values map[string]string
	getErr error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	cmd.SetVal("OK")
	return cmd
}

func TestRedisBackend_SaveAndLoad(t *testing.T) {
	fr := &fakeRedis{values: map[string]string{}}
	b := newRedisBackend(fr, nil, "")
	ctx := context.Background()

	_, err := b.Load(ctx)
	assert.ErrorIs(t, err, ErrEmpty)

	h := history.History{"2024-01-01": {"a/b": {Stars: 10, Commits: 5, Issues: 2}}}
	require.NoError(t, b.Save(ctx, h))
	assert.Contains(t, fr.values, defaultRedisKey)

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, h, loaded)
	assert.NoError(t, b.Close())
}

func TestRedisBackend_LoadError(t *testing.T) {
	fr := &fakeRedis{values: map[string]string{}, getErr: errors.New("connection refused")}
	b := newRedisBackend(fr, nil, "custom")

	_, err := b.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom")
}
