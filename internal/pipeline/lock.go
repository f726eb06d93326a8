package pipeline

import (
	"context"
	"errors"
	"time"
)

// ErrPartitionLocked is returned when another run holds the tenant lock.
var ErrPartitionLocked = errors.New("partition locked by another run")

// Lock is a held partition lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker grants mutually exclusive partition locks across processes.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// LockKey returns the lock key of a tenant partition.
func LockKey(pipelineName, tenantID string) string {
	return "lock:" + pipelineName + ":" + tenantID
}

// NoopLocker always grants the lock, used when Redis is disabled.
type NoopLocker struct{}

func (NoopLocker) Obtain(context.Context, string, time.Duration) (Lock, error) {
	return noopLock{}, nil
}

type noopLock struct{}

func (noopLock) Release(context.Context) error { return nil }
