// Package waitq provides small synchronization primitives for bridging
// push-style event producers and blocking consumers: an unbounded FIFO
// queue with timeout-bounded receives, and a one-shot latch. Producers
// never block; only the waiter side does. The package has no
// dependencies beyond the standard library so it can sit under pkg/ as
// a standalone, reusable component.
package waitq

import (
	"errors"
	"sync"
	"time"
)

// ErrTimedOut is returned by Queue.Get and Latch.Wait when the deadline
// elapses before a value (or the signal) arrives. It is distinct from
// any failure the producer itself may signal through queued values.
var ErrTimedOut = errors.New("waitq: timed out")

// Queue is an unbounded, insertion-ordered FIFO of T. Put never blocks
// and never fails; Get blocks the caller until an item is available or
// the timeout elapses. Each item is delivered to exactly one receiver.
//
// The zero value is not usable; construct with NewQueue.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	// wake carries at most one pending wakeup token. A lost token is
	// harmless because Get re-checks items before every wait.
	wake chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{wake: make(chan struct{}, 1)}
}

// Put appends item to the tail of the queue and wakes one waiter if any
// is blocked. Safe for concurrent use by multiple producers; never
// blocks the caller.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Get removes and returns the head item, blocking until one is
// available or timeout elapses. On timeout it returns the zero value
// and ErrTimedOut. A non-positive timeout means Get only drains an
// already-available item.
func (q *Queue[T]) Get(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if item, ok := q.TryGet(); ok {
			return item, nil
		}

		select {
		case <-q.wake:
			// Re-check under the lock; another receiver may have won.
		case <-timer.C:
			var zero T

			return zero, ErrTimedOut
		}
	}
}

// TryGet removes and returns the head item without blocking. The second
// return value reports whether an item was present.
func (q *Queue[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T

		return zero, false
	}

	item := q.items[0]
	q.items = q.items[1:]

	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
