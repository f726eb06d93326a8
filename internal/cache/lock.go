package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockcast/internal/pipeline"
)

// RedisLocker implements pipeline.Locker on Redis so concurrently scheduled
// runs never process the same tenant at once.
type RedisLocker struct {
	client *redislock.Client
}

var _ pipeline.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(client)}
}

// Obtain tries once to take the lock. A held lock yields pipeline.ErrPartitionLocked.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (pipeline.Lock, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%s: %w", key, pipeline.ErrPartitionLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return lock, nil
}
