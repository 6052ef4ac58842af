package scheduler

import (
	"context"
	"sync"
)

// Future resolves once with the value and error produced by a scheduled task.
type Future[T any] struct {
	resolveOnce sync.Once
	completed   chan struct{}
	value       T
	failure     error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{completed: make(chan struct{})}
}

func (future *Future[T]) resolve(value T, failure error) {
	future.resolveOnce.Do(func() {
		future.value = value
		future.failure = failure
		close(future.completed)
	})
}

// Done is closed when the future resolves.
func (future *Future[T]) Done() <-chan struct{} {
	return future.completed
}

// Await blocks until the future resolves or the context ends.
func (future *Future[T]) Await(executionContext context.Context) (T, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}
	select {
	case <-future.completed:
		return future.value, future.failure
	case <-executionContext.Done():
		select {
		case <-future.completed:
			return future.value, future.failure
		default:
		}
		var zeroValue T
		return zeroValue, executionContext.Err()
	}
}
