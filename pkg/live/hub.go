package live

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscriber buffer size.
const DefaultBuffer = 16

// Observer is told when subscribers come and go. telemetry.Metrics
// implements it.
type Observer interface {
	SubscriberAdded()
	SubscriberRemoved()
}

// Option configures a Hub.
type Option func(*hubOptions)

type hubOptions struct {
	buffer   int
	observer Observer
}

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(o *hubOptions) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithObserver reports subscriber counts to o.
func WithObserver(o Observer) Option {
	return func(opts *hubOptions) {
		opts.observer = o
	}
}

// Hub holds a value and broadcasts its changes.
type Hub[T any] struct {
	mu      sync.RWMutex
	current T
	subs    map[string]*Subscription[T]
	closed  bool

	opts    hubOptions
	dropped atomic.Uint64
}

// Subscription receives published values on C until it is closed.
type Subscription[T any] struct {
	// ID identifies the subscriber in logs.
	ID string
	C  <-chan T

	ch   chan T
	hub  *Hub[T]
	once sync.Once
}

// NewHub creates a hub holding initial.
func NewHub[T any](initial T, opts ...Option) *Hub[T] {
	h := &Hub[T]{
		current: initial,
		subs:    make(map[string]*Subscription[T]),
		opts:    hubOptions{buffer: DefaultBuffer},
	}
	for _, opt := range opts {
		opt(&h.opts)
	}
	return h
}

// Current returns the last published value.
func (h *Hub[T]) Current() T {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Publish stores v and sends it to every subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(v)
}

func (h *Hub[T]) publishLocked(v T) {
	if h.closed {
		return
	}
	h.current = v
	for _, sub := range h.subs {
		select {
		case sub.ch <- v:
		default:
			h.dropped.Add(1)
		}
	}
}

// Update publishes fn applied to the current value and returns the result.
func (h *Hub[T]) Update(fn func(T) T) T {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := fn(h.current)
	h.publishLocked(v)
	return v
}

// Subscribe registers a subscriber. After Close the returned subscription's
// channel is already closed.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	sub, _ := h.SubscribeCurrent()
	return sub
}

// SubscribeCurrent registers a subscriber and returns the value current at
// that moment. Every later publish reaches the subscription's channel and
// no earlier one does, so sending the returned value first never repeats
// or skips a value.
func (h *Hub[T]) SubscribeCurrent() (*Subscription[T], T) {
	ch := make(chan T, h.opts.buffer)
	sub := &Subscription[T]{ID: uuid.NewString(), C: ch, ch: ch, hub: h}

	h.mu.Lock()
	current := h.current
	if h.closed {
		h.mu.Unlock()
		close(ch)
		sub.once.Do(func() {})
		return sub, current
	}
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	if h.opts.observer != nil {
		h.opts.observer.SubscriberAdded()
	}
	return sub, current
}

// Close unregisters the subscription and closes C. Safe to call twice.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		_, ok := h.subs[s.ID]
		if ok {
			delete(h.subs, s.ID)
			close(s.ch)
		}
		h.mu.Unlock()
		if ok && h.opts.observer != nil {
			h.opts.observer.SubscriberRemoved()
		}
	})
}

// Subscribers returns the number of open subscriptions.
func (h *Hub[T]) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many values were dropped for slow subscribers.
func (h *Hub[T]) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes every subscription. Later publishes are ignored.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*Subscription[T])
	for _, sub := range subs {
		close(sub.ch)
	}
	h.mu.Unlock()

	if h.opts.observer != nil {
		for range subs {
			h.opts.observer.SubscriberRemoved()
		}
	}
}
