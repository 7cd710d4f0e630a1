package service

import (
	"context"
	"time"
)

// Locker serializes work on a single job across processes. Acquire returns
// ok=false without error when someone else holds the lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

func jobLockKey(jobID int64) string {
	return "job:" + formatID(jobID) + ":tick"
}
