package resource

import "time"

// Dispatcher applies fetch completions on a single writer.
// A live view implements it so completions are applied between renders.
type Dispatcher interface {
	Dispatch(fn func())
}

// Option configures a Resource.
type Option func(*options)

type options struct {
	name       string
	retryCount int
	retryDelay time.Duration
	dispatcher Dispatcher
}

// WithName labels the resource in logs and errors.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithRetry retries a failed fetch count more times, waiting delay between
// attempts.
func WithRetry(count int, delay time.Duration) Option {
	return func(o *options) {
		o.retryCount = count
		o.retryDelay = delay
	}
}

// WithDispatcher routes fetch completions through d instead of applying them
// on the fetch goroutine. It overrides an ambient dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// OnSuccess registers a callback run after a fetch resolves without error.
func (r *Resource[K, T]) OnSuccess(fn func(T)) *Resource[K, T] {
	r.mu.Lock()
	r.onSuccess = fn
	r.mu.Unlock()
	return r
}

// OnError registers a callback run after a fetch fails.
func (r *Resource[K, T]) OnError(fn func(error)) *Resource[K, T] {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
	return r
}
