// Package queue provides a generic blocking bounded queue.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by PopTimeout when no item arrived within the window
var ErrTimeout = errors.New("queue: pop timed out")

// Bounded is a FIFO queue holding at most Cap() items.
// Push blocks while the queue is full, Pop blocks while it is empty.
// It is safe for concurrent use by multiple producers and consumers.
type Bounded[T any] struct {
	items chan T
}

// New creates a bounded queue with the given capacity (must be at least 1)
func New[T any](capacity int) (*Bounded[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("queue capacity must be at least 1, got %d", capacity)
	}
	return &Bounded[T]{items: make(chan T, capacity)}, nil
}

// Push appends item, blocking until there is room or ctx is done
func (q *Bounded[T]) Push(ctx context.Context, item T) error {
	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop removes the oldest item, blocking until one is available or ctx is done
func (q *Bounded[T]) Pop(ctx context.Context) (T, error) {
	select {
	case item := <-q.items:
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// PopTimeout is Pop bounded by timeout. It returns ErrTimeout when the
// window elapses with the queue still empty.
func (q *Bounded[T]) PopTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	// Fast path keeps a ready item from racing the timer
	select {
	case item := <-q.items:
		return item, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-q.items:
		return item, nil
	case <-timer.C:
		var zero T
		return zero, ErrTimeout
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Len returns the number of queued items
func (q *Bounded[T]) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity
func (q *Bounded[T]) Cap() int {
	return cap(q.items)
}
