// Package task provides a minimal typed future used to express the deferred
// (asynchronous) variants of filesystem probes and resolutions.
//
// A [Future] is settled exactly once with a value and an error. Awaiting a
// future blocks until it settles or the supplied context is cancelled,
// whichever comes first; a cancelled await abandons the in-flight work
// without affecting the future itself.
package task

import "context"

// Future is a value that becomes available later.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn on a new goroutine and returns a future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Done returns an already settled future.
func Done[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}

// Ready returns a channel that is closed once the future settles.
func (f *Future[T]) Ready() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
