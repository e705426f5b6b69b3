package utils

import (
	"context"
	"sync"
	"time"
)

var (
	sleepMu sync.RWMutex
	sleep   = time.Sleep
)

// SetSleep replaces the sleep function used by WaitFor and returns a restore func.
// Intended for tests.
func SetSleep(fn func(time.Duration)) func() {
	sleepMu.Lock()
	previous := sleep
	sleep = fn
	sleepMu.Unlock()

	return func() {
		sleepMu.Lock()
		sleep = previous
		sleepMu.Unlock()
	}
}

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	sleepMu.RLock()
	fn := sleep
	sleepMu.RUnlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
