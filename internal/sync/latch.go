// Package sync provides synchronisation primitives for publishing the outcome
// of a deployment to any number of waiters.
package sync

import (
	"context"
	"errors"
	"sync"
)

// A Latch publishes a single outcome, either a value or an error, and allows
// for Wait()ing until it is available. Unlike a broadcast mechanism that may
// be missed if waiting begins after a signal, waiting on an already-resolved
// Latch returns immediately.
//
// The zero value for a Latch is unresolved and ready for use. A Latch MUST NOT
// be copied as it contains a sync.Mutex.
//
// The implementation closes a channel upon resolution. All calls to Wait()
// receive on the channel to unblock, which allows for Context cancellation to
// be honoured by each waiter independently.
type Latch[T any] struct {
	mu       sync.Mutex
	resolved bool
	val      T
	err      error

	// MUST NOT be accessed directly. Use doneChan() or
	// doneChanWhenAlreadyLocked().
	done chan struct{}
}

// doneChan locks l and returns l.doneChanWhenAlreadyLocked().
func (l *Latch[T]) doneChan() chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doneChanWhenAlreadyLocked()
}

// doneChanWhenAlreadyLocked returns l.done, make()ing it if nil.
func (l *Latch[T]) doneChanWhenAlreadyLocked() chan struct{} {
	if l.done == nil {
		l.done = make(chan struct{})
	}
	return l.done
}

// ErrAlreadyResolved is returned by Resolve() and Reject() if the Latch already
// carries an outcome.
var ErrAlreadyResolved = errors.New("latch already resolved")

// Resolve sets the outcome of the Latch to the value v, unblocking all current
// and future calls to Wait().
func (l *Latch[T]) Resolve(v T) error {
	return l.set(v, nil)
}

// Reject sets the outcome of the Latch to the non-nil error err, unblocking
// all current and future calls to Wait().
func (l *Latch[T]) Reject(err error) error {
	if err == nil {
		return errors.New("Reject(nil)")
	}
	var zero T
	return l.set(zero, err)
}

func (l *Latch[T]) set(v T, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resolved {
		return ErrAlreadyResolved
	}
	l.resolved = true
	l.val = v
	l.err = err
	close(l.doneChanWhenAlreadyLocked())
	return nil
}

// Wait blocks until the Latch is resolved, returning the value or error passed
// to Resolve() or Reject() respectively. If ctx is cancelled first, Wait
// returns ctx.Err() and the Latch is unaffected.
func (l *Latch[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()

	case <-l.doneChan():
		// The channel is only closed after val and err are set, under the lock.
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.val, l.err
	}
}

// Resolved returns whether an outcome has been set.
func (l *Latch[T]) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved
}
