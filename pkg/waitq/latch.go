package waitq

import (
	"context"
	"sync"
	"time"
)

// Latch is a one-shot, set-once signal. Set is idempotent; every waiter
// (past and future) observes the signal once it fires. The closed-channel
// representation lets callers select on Done alongside other channels.
//
// The zero value is not usable; construct with NewLatch.
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

// NewLatch returns an unset latch.
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Set signals the latch, releasing all current and future waiters.
// Repeated calls are no-ops.
func (l *Latch) Set() {
	l.once.Do(func() { close(l.ch) })
}

// IsSet reports whether the latch has been signaled, without blocking.
func (l *Latch) IsSet() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the latch is set.
func (l *Latch) Done() <-chan struct{} {
	return l.ch
}

// Wait blocks until the latch is set or ctx is canceled, in which case
// it returns the context's error. Returns immediately when already set.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitTimeout blocks up to d and reports whether the latch was set
// within that window.
func (l *Latch) WaitTimeout(d time.Duration) bool {
	if l.IsSet() {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-l.ch:
		return true
	case <-timer.C:
		return false
	}
}
