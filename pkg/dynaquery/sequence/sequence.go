// Package sequence hands out monotonically increasing counters keyed by
// name, used to assign auto-increment primary keys.
package sequence

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
)

// Source is a named counter store.
type Source interface {
	// InitSchema prepares any backing structures. It is idempotent.
	InitSchema(ctx context.Context) error
	// Increment adds amount to key and returns the new value.
	Increment(ctx context.Context, key string, amount int64) (int64, error)
	// Reset sets key so that the next Increment by n returns startingAt+n.
	Reset(ctx context.Context, key string, startingAt int64) error
}

// Memory is an in-process Source.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemory() *Memory { return &Memory{counters: map[string]int64{}} }

func (m *Memory) InitSchema(context.Context) error { return nil }

func (m *Memory) Increment(_ context.Context, key string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] += amount
	return m.counters[key], nil
}

func (m *Memory) Reset(_ context.Context, key string, startingAt int64) error {
	m.mu.Lock()
	m.counters[key] = startingAt
	m.mu.Unlock()
	return nil
}

// RedisClient is the part of *redis.Client a Redis sequence needs.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis keeps counters as plain Redis integers under Prefix+key.
type Redis struct {
	Client RedisClient
	Prefix string
}

func NewRedis(client RedisClient, prefix string) *Redis {
	return &Redis{Client: client, Prefix: prefix}
}

// InitSchema checks connectivity; Redis needs no schema.
func (r *Redis) InitSchema(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return mserrors.Wrap(mserrors.ErrBackend, "redis ping", err)
	}
	return nil
}

func (r *Redis) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	n, err := r.Client.IncrBy(ctx, r.Prefix+key, amount).Result()
	if err != nil {
		return 0, mserrors.Wrap(mserrors.ErrBackend, "redis incrby "+key, err)
	}
	return n, nil
}

func (r *Redis) Reset(ctx context.Context, key string, startingAt int64) error {
	if err := r.Client.Set(ctx, r.Prefix+key, startingAt, 0).Err(); err != nil {
		return mserrors.Wrap(mserrors.ErrBackend, "redis set "+key, err)
	}
	return nil
}
