package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/vango-dev/suspense/pkg/reactive"
	"github.com/vango-dev/suspense/pkg/suspense"
)

// ErrDisposed is returned by Await when the resource was disposed before it
// resolved.
var ErrDisposed = errors.New("resource: disposed")

// State represents the current state of a resource.
type State int

const (
	Unresolved State = iota // No fetch started yet
	Pending                 // Fetch in progress
	Resolved                // Latest fetch settled, successfully or not
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the settled outcome of a fetch.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the fetch succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// registration is a non-owning link to a suspense context the resource
// registered with. counted is true while the context holds an increment for
// this resource.
type registration struct {
	ctx     weak.Pointer[suspense.Context]
	counted bool
}

// Resource is a keyed async value.
type Resource[K comparable, T any] struct {
	id   uint64
	opts options

	source func() K
	fetch  func(context.Context, K) (T, error)

	state  *reactive.Signal[State]
	result *reactive.Signal[Result[T]]

	mu      sync.Mutex
	st      State
	key     K
	hasKey  bool
	gen     uint64
	settled chan struct{}
	regs    []*registration

	dispatcher Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	onSuccess func(T)
	onError   func(error)

	disposed atomic.Bool
}

var resourceIDs atomic.Uint64

// New creates a resource keyed by source and fetched by fetch.
//
// source is tracked reactively: when a signal it reads changes, the resource
// fetches again for the new key. The first fetch starts immediately.
// When called while a scope is rendering, the resource is kept in the
// owner's hook slot and later renders get the same resource back.
func New[K comparable, T any](source func() K, fetch func(context.Context, K) (T, error), opts ...Option) *Resource[K, T] {
	r, reused := reactive.UseHook(func() *Resource[K, T] {
		return create(source, fetch, opts)
	})
	if reused {
		r.registerAmbient()
	}
	return r
}

// NewUnkeyed creates a resource without a key.
func NewUnkeyed[T any](fetch func(context.Context) (T, error), opts ...Option) *Resource[struct{}, T] {
	return New(func() struct{} { return struct{}{} },
		func(ctx context.Context, _ struct{}) (T, error) { return fetch(ctx) },
		opts...)
}

func create[K comparable, T any](source func() K, fetch func(context.Context, K) (T, error), opts []Option) *Resource[K, T] {
	r := &Resource[K, T]{
		id:     resourceIDs.Add(1),
		source: source,
		fetch:  fetch,
		state:  reactive.NewSignal(Unresolved),
		result: reactive.NewSignal(Result[T]{}).WithEquals(func(a, b Result[T]) bool { return false }),
	}
	for _, opt := range opts {
		opt(&r.opts)
	}
	r.dispatcher = r.opts.dispatcher
	if r.dispatcher == nil {
		r.dispatcher = currentDispatcher()
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	r.registerAmbient()

	reactive.CreateEffect(func() reactive.Cleanup {
		k := r.source()
		r.mu.Lock()
		changed := !r.hasKey || k != r.key
		r.mu.Unlock()
		if changed {
			reactive.Untracked(func() { r.load(k) })
		}
		return nil
	}, reactive.EffectName(r.Name()))

	if owner := reactive.CurrentOwner(); owner != nil {
		owner.OnCleanup(r.Dispose)
	}
	return r
}

// ID returns the unique identifier for this resource.
func (r *Resource[K, T]) ID() uint64 {
	return r.id
}

// Name returns the label given with WithName, or a generated one.
func (r *Resource[K, T]) Name() string {
	if r.opts.name != "" {
		return r.opts.name
	}
	return fmt.Sprintf("resource-%d", r.id)
}

// =============================================================================
// Suspense registration
// =============================================================================

func (r *Resource[K, T]) registerAmbient() {
	if sc := suspense.Current(); sc != nil {
		r.Register(sc)
	}
}

// Register links the resource to sc. While the resource is pending sc holds
// one increment for it. Registering the same context twice has no effect.
func (r *Resource[K, T]) Register(sc *suspense.Context) {
	if r.disposed.Load() || sc == nil {
		return
	}
	wp := weak.Make(sc)

	r.mu.Lock()
	for _, reg := range r.regs {
		if reg.ctx == wp {
			r.mu.Unlock()
			return
		}
	}
	reg := &registration{ctx: wp}
	r.regs = append(r.regs, reg)
	pending := r.st == Pending
	if pending {
		reg.counted = true
	}
	r.mu.Unlock()

	if pending {
		sc.TrackPending()
	}
}

// markPendingLocked increments every live registered context that does not
// already hold an increment. It returns the contexts to increment once mu is
// released.
func (r *Resource[K, T]) markPendingLocked() []*suspense.Context {
	var out []*suspense.Context
	live := r.regs[:0]
	for _, reg := range r.regs {
		sc := reg.ctx.Value()
		if sc == nil || sc.IsDisposed() {
			continue
		}
		live = append(live, reg)
		if !reg.counted {
			reg.counted = true
			out = append(out, sc)
		}
	}
	r.regs = live
	return out
}

// releaseLocked clears every increment the resource holds and returns the
// contexts to decrement once mu is released.
func (r *Resource[K, T]) releaseLocked() []*suspense.Context {
	var out []*suspense.Context
	for _, reg := range r.regs {
		if !reg.counted {
			continue
		}
		reg.counted = false
		if sc := reg.ctx.Value(); sc != nil {
			out = append(out, sc)
		}
	}
	return out
}

// =============================================================================
// Fetching
// =============================================================================

func (r *Resource[K, T]) load(k K) {
	if r.disposed.Load() {
		return
	}

	r.mu.Lock()
	r.key = k
	r.hasKey = true
	r.gen++
	gen := r.gen
	wasPending := r.st == Pending
	r.st = Pending
	if !wasPending {
		r.settled = make(chan struct{})
	}
	increments := r.markPendingLocked()
	r.mu.Unlock()

	r.state.Set(Pending)
	for _, sc := range increments {
		sc.TrackPending()
	}

	go r.run(gen, k)
}

func (r *Resource[K, T]) run(gen uint64, k K) {
	var (
		value T
		err   error
	)

	attempts := 1 + r.opts.retryCount
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(r.opts.retryDelay):
			case <-r.ctx.Done():
				return
			}
		}
		if !r.current(gen) {
			return
		}

		value, err = r.callFetch(k)
		if err == nil {
			break
		}
	}

	apply := func() { r.settle(gen, Result[T]{Value: value, Err: err}) }
	if r.dispatcher != nil {
		r.dispatcher.Dispatch(apply)
		return
	}
	apply()
}

// callFetch runs fetch, turning a panic into an error result.
func (r *Resource[K, T]) callFetch(k K) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("resource %s: fetch panicked: %v", r.Name(), p)
		}
	}()
	return r.fetch(r.ctx, k)
}

func (r *Resource[K, T]) current(gen uint64) bool {
	if r.disposed.Load() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen == gen
}

// settle publishes the result of fetch generation gen. Results of older
// generations are dropped.
func (r *Resource[K, T]) settle(gen uint64, res Result[T]) {
	if r.disposed.Load() {
		return
	}

	r.mu.Lock()
	if gen != r.gen || r.st != Pending {
		r.mu.Unlock()
		return
	}
	r.st = Resolved
	settled := r.settled
	decrements := r.releaseLocked()
	onSuccess, onError := r.onSuccess, r.onError
	r.mu.Unlock()

	reactive.Batch(func() {
		r.result.Set(res)
		r.state.Set(Resolved)
	})
	close(settled)

	for _, sc := range decrements {
		sc.TrackResolved()
	}

	if res.Err != nil {
		if onError != nil {
			onError(res.Err)
		}
	} else if onSuccess != nil {
		onSuccess(res.Value)
	}
}

// Refetch fetches again for the current key.
func (r *Resource[K, T]) Refetch() {
	r.mu.Lock()
	k, ok := r.key, r.hasKey
	r.mu.Unlock()
	if !ok {
		k = reactive.UntrackedValue(r.source)
	}
	r.load(k)
}

// Mutate replaces the value locally. A fetch in flight is abandoned and the
// resource resolves with the new value.
func (r *Resource[K, T]) Mutate(fn func(T) T) {
	if r.disposed.Load() {
		return
	}

	current := r.result.Peek()

	r.mu.Lock()
	r.gen++
	gen := r.gen
	if r.st != Pending {
		r.st = Pending
		r.settled = make(chan struct{})
	}
	r.mu.Unlock()

	r.settle(gen, Result[T]{Value: fn(current.Value)})
}

// =============================================================================
// Reading
// =============================================================================

// Read returns the latest result and whether it is available. It never
// blocks. Reading registers the resource with the ambient suspense context
// and subscribes the current listener.
func (r *Resource[K, T]) Read() (Result[T], bool) {
	r.registerAmbient()
	if r.state.Get() != Resolved {
		return Result[T]{}, false
	}
	return r.result.Get(), true
}

// Get returns the latest value, or the zero value when the resource is not
// resolved or failed.
func (r *Resource[K, T]) Get() T {
	res, ok := r.Read()
	if !ok {
		var zero T
		return zero
	}
	return res.Value
}

// Error returns the error of the latest fetch, if any.
func (r *Resource[K, T]) Error() error {
	res, ok := r.Read()
	if !ok {
		return nil
	}
	return res.Err
}

// State returns the current state. It is a reactive read.
func (r *Resource[K, T]) State() State {
	return r.state.Get()
}

// Loading reports whether the resource has not resolved yet.
func (r *Resource[K, T]) Loading() bool {
	return r.state.Get() != Resolved
}

// Await blocks until the resource resolves or ctx is done.
func (r *Resource[K, T]) Await(ctx context.Context) (Result[T], error) {
	for {
		if r.disposed.Load() {
			return Result[T]{}, ErrDisposed
		}

		r.mu.Lock()
		st, ch := r.st, r.settled
		r.mu.Unlock()

		if st == Resolved {
			return r.result.Peek(), nil
		}
		if ch == nil {
			return Result[T]{}, fmt.Errorf("resource %s: no fetch started", r.Name())
		}

		select {
		case <-ch:
		case <-r.ctx.Done():
		case <-ctx.Done():
			return Result[T]{}, ctx.Err()
		}
	}
}

// Dispose cancels an in-flight fetch and releases the resource's suspense
// registrations. It is called automatically when the owning scope is
// disposed.
func (r *Resource[K, T]) Dispose() {
	if r.disposed.Swap(true) {
		return
	}
	r.cancel()

	r.mu.Lock()
	decrements := r.releaseLocked()
	r.regs = nil
	r.mu.Unlock()

	for _, sc := range decrements {
		sc.TrackResolved()
	}
}

// IsDisposed reports whether the resource has been disposed.
func (r *Resource[K, T]) IsDisposed() bool {
	return r.disposed.Load()
}
