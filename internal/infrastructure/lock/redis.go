// Package lock provides a Redis-backed implementation of the keyed locker
// for deployments running more than one process.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"distro/internal/core/apperror"
	corelock "distro/internal/core/lock"
	"distro/pkg/logger"
)

// Config controls lock lifetime and waiting.
type Config struct {
	// Prefix is prepended to every key.
	Prefix string
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// Wait is the total time to keep retrying a busy key.
	Wait time.Duration
	// RetryInterval is the pause between attempts.
	RetryInterval time.Duration
}

// DefaultConfig returns the settings used by the worker and tests.
func DefaultConfig() Config {
	return Config{
		Prefix:        "lock:",
		TTL:           30 * time.Second,
		Wait:          5 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// RedisLocker implements corelock.Locker on top of redislock.
type RedisLocker struct {
	client *redislock.Client
	cfg    Config
}

// NewRedisLocker creates a locker using an existing Redis client.
func NewRedisLocker(rdb redis.UniversalClient, cfg Config) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		cfg:    cfg,
	}
}

// Key returns the Redis key for a lock key.
func (l *RedisLocker) Key(key string) string {
	return l.cfg.Prefix + key
}

func (l *RedisLocker) options() *redislock.Options {
	attempts := 0
	if l.cfg.RetryInterval > 0 {
		attempts = int(l.cfg.Wait / l.cfg.RetryInterval)
	}
	return &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.cfg.RetryInterval), attempts),
	}
}

// Acquire obtains every key in order. On failure the keys already held are
// released. A key still busy after Wait yields CONCURRENT_MODIFICATION.
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (corelock.Release, error) {
	held := make([]*redislock.Lock, 0, len(keys))
	release := func(ctx context.Context) {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.Warn(ctx, "failed to release lock", "key", held[i].Key(), "error", err)
			}
		}
	}

	for _, key := range keys {
		lk, err := l.client.Obtain(ctx, l.Key(key), l.cfg.TTL, l.options())
		if err != nil {
			release(ctx)
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, apperror.NewConcurrentModification("lock", key).WithCause(err)
			}
			return nil, fmt.Errorf("obtain lock %s: %w", key, err)
		}
		held = append(held, lk)
	}

	return release, nil
}

var _ corelock.Locker = (*RedisLocker)(nil)
