package reactive

import (
	"sync"
	"sync/atomic"
)

// Effect represents a reactive side effect that runs when its dependencies change.
//
// Effects run immediately when created. When a signal or memo they read
// changes, the effect is scheduled on its Owner and re-runs the next time the
// owner's pending effects are executed. An effect created without an owner
// re-runs synchronously from MarkDirty.
type Effect struct {
	id uint64

	fn      func() Cleanup
	cleanup Cleanup

	sources   []*signalBase
	sourcesMu sync.Mutex

	owner *Owner

	// runMu serializes runs of the same effect.
	runMu sync.Mutex

	pending  atomic.Bool
	disposed atomic.Bool

	// name labels the effect in debug output.
	name string
}

// MarkDirty marks the effect as needing to re-run.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}

	if !e.pending.CompareAndSwap(false, true) {
		return
	}
	if e.owner != nil {
		e.owner.scheduleEffect(e)
		return
	}
	e.run()
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// Name returns the label given with EffectName, if any.
func (e *Effect) Name() string {
	return e.name
}

// Pending reports whether the effect is waiting to re-run.
func (e *Effect) Pending() bool {
	return e.pending.Load()
}

func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = e.sources[:0]
	e.sourcesMu.Unlock()

	oldListener := setCurrentListener(e)
	oldOwner := setCurrentOwner(e.owner)
	defer func() {
		setCurrentOwner(oldOwner)
		setCurrentListener(oldListener)
	}()

	e.cleanup = e.fn()
}

func (e *Effect) addSource(source *signalBase) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == source {
			return
		}
	}
	e.sources = append(e.sources, source)
}

// dispose runs the last cleanup and unsubscribes from all sources.
func (e *Effect) dispose() {
	if e.disposed.Swap(true) {
		return
	}

	e.runMu.Lock()
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	e.runMu.Unlock()

	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = nil
	e.sourcesMu.Unlock()
}

// EffectOption configures an Effect.
type EffectOption func(*Effect)

// EffectName labels the effect for debugging.
func EffectName(name string) EffectOption {
	return func(e *Effect) {
		e.name = name
	}
}

// CreateEffect creates and runs a new effect within the current owner.
// The function runs immediately and re-runs when any signal or memo it read
// changes. A returned Cleanup is called before the next run and on disposal.
//
// Example:
//
//	CreateEffect(func() Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return func() { fmt.Println("Cleanup") }
//	})
func CreateEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	owner := CurrentOwner()

	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: owner,
	}
	for _, opt := range opts {
		opt(e)
	}

	if owner != nil {
		owner.registerEffect(e)
	}

	e.run()

	return e
}

// OnCleanup registers fn to run when the current owner is disposed.
// Outside of any owner it is a no-op.
func OnCleanup(fn func()) {
	if owner := CurrentOwner(); owner != nil {
		owner.OnCleanup(fn)
	}
}

var _ sourceTracker = (*Effect)(nil)
