package future

import (
	"context"
	"fmt"
	"sync"
)

// Future is the result of an asynchronous operation. It is completed exactly once.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// New returns an incomplete future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future that already holds a result.
func Completed[T any](v T, err error) *Future[T] {
	f := New[T]()
	f.Set(v, err)
	return f
}

// Go runs fn on its own goroutine and completes the returned future with its result.
// A panic in fn completes the future with an error.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := New[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.Set(zero, fmt.Errorf("future panicked: %v", r))
			}
		}()
		f.Set(fn(ctx))
	}()
	return f
}

// Set stores the result and unblocks any waiting consumers. Only the first call has an effect.
func (f *Future[T]) Set(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get returns the result, blocking until it is available or ctx is cancelled.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("wait for future: %w", ctx.Err())
	}
}
