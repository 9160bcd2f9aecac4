package reactive

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Owner represents a scope that owns reactive primitives.
// When an Owner is disposed, all effects, cleanups and child owners it
// contains are disposed as well.
//
// Owners form a hierarchy that mirrors the view tree: the render engine
// creates one Owner per document and one child Owner per suspense boundary.
type Owner struct {
	id uint64

	// parent is nil for a root Owner.
	parent *Owner

	children   []*Owner
	childrenMu sync.Mutex

	effects   []*Effect
	effectsMu sync.Mutex

	// cleanups are manual cleanup functions registered via OnCleanup.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// pendingEffects are effects scheduled to re-run.
	pendingEffects   []*Effect
	pendingEffectsMu sync.Mutex

	// values stores context values for this scope.
	values   map[any]any
	valuesMu sync.RWMutex

	disposed atomic.Bool

	// Hook slot storage gives primitives created during a render a stable
	// identity across re-renders of this scope.
	hookSlots   []any
	hookSlotIdx int
	hookMu      sync.Mutex
}

// NewOwner creates a new Owner registered as a child of parent.
// If parent is nil, creates a root Owner.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(o)
	}

	return o
}

// ID returns the unique identifier for this Owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent Owner, or nil for a root Owner.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed returns true if this Owner has been disposed.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()

	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

func (o *Owner) registerEffect(e *Effect) {
	if o.disposed.Load() {
		return
	}

	o.effectsMu.Lock()
	defer o.effectsMu.Unlock()
	o.effects = append(o.effects, e)
}

// OnCleanup registers fn to run when this Owner is disposed.
// If the Owner is already disposed, fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}

	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

func (o *Owner) scheduleEffect(e *Effect) {
	if o.disposed.Load() {
		return
	}

	o.pendingEffectsMu.Lock()
	defer o.pendingEffectsMu.Unlock()
	o.pendingEffects = append(o.pendingEffects, e)
}

// Run executes fn with this Owner as the current owner.
// A panic inside fn is recovered and returned as a *PanicError.
func (o *Owner) Run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	WithOwner(o, fn)
	return nil
}

// RunPendingEffects executes all scheduled effects of this Owner and its
// descendants, repeating until no effect is left pending.
// It returns the number of effect runs.
func (o *Owner) RunPendingEffects() int {
	runs := 0
	for {
		n := o.runPendingOnce()
		if n == 0 {
			return runs
		}
		runs += n
	}
}

func (o *Owner) runPendingOnce() int {
	if o.disposed.Load() {
		return 0
	}

	o.pendingEffectsMu.Lock()
	effects := o.pendingEffects
	o.pendingEffects = nil
	o.pendingEffectsMu.Unlock()

	runs := 0
	for _, e := range effects {
		if e.pending.Load() {
			e.run()
			runs++
		}
	}

	o.childrenMu.Lock()
	children := make([]*Owner, len(o.children))
	copy(children, o.children)
	o.childrenMu.Unlock()

	for _, child := range children {
		runs += child.runPendingOnce()
	}

	return runs
}

// HasPendingEffects returns true if this owner or any child has pending effects.
func (o *Owner) HasPendingEffects() bool {
	if o.disposed.Load() {
		return false
	}

	o.pendingEffectsMu.Lock()
	hasPending := len(o.pendingEffects) > 0
	o.pendingEffectsMu.Unlock()

	if hasPending {
		return true
	}

	o.childrenMu.Lock()
	children := make([]*Owner, len(o.children))
	copy(children, o.children)
	o.childrenMu.Unlock()

	for _, child := range children {
		if child.HasPendingEffects() {
			return true
		}
	}

	return false
}

// Dispose disposes this Owner and all its children, effects, and cleanups.
// Children are disposed in reverse order (last created first).
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := make([]*Owner, len(o.children))
	copy(children, o.children)
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.effectsMu.Lock()
	effects := o.effects
	o.effects = nil
	o.effectsMu.Unlock()

	for _, e := range effects {
		e.dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	o.pendingEffectsMu.Lock()
	o.pendingEffects = nil
	o.pendingEffectsMu.Unlock()
}

// =============================================================================
// Render phase and hook slots
// =============================================================================

// StartRender marks the beginning of a render of this scope and resets the
// hook slot cursor.
func (o *Owner) StartRender() {
	beginRender()

	o.hookMu.Lock()
	o.hookSlotIdx = 0
	o.hookMu.Unlock()
}

// EndRender marks the end of a render of this scope.
func (o *Owner) EndRender() {
	endRender()
}

// Render runs fn as a render of this scope: the Owner is current, the hook
// slot cursor starts at zero and a panic is returned as a *PanicError.
func (o *Owner) Render(fn func()) error {
	o.StartRender()
	defer o.EndRender()
	return o.Run(fn)
}

// UseHookSlot returns the stored value for the next hook slot, or nil on the
// first render. The caller creates the value and stores it with SetHookSlot.
//
// Usage pattern:
//
//	if slot := owner.UseHookSlot(); slot != nil {
//	    return slot.(*T)
//	}
//	instance := &T{...}
//	owner.SetHookSlot(instance)
func (o *Owner) UseHookSlot() any {
	o.hookMu.Lock()
	defer o.hookMu.Unlock()

	idx := o.hookSlotIdx
	o.hookSlotIdx++

	if idx < len(o.hookSlots) {
		return o.hookSlots[idx]
	}
	return nil
}

// SetHookSlot stores a value in the slot returned nil by UseHookSlot.
func (o *Owner) SetHookSlot(value any) {
	o.hookMu.Lock()
	defer o.hookMu.Unlock()
	o.hookSlots = append(o.hookSlots, value)
}

// UseHook returns the value kept in the current owner's next hook slot. On
// the first render of the owner create is called and its result stored;
// outside a render create is simply called. reused reports whether an
// existing value was returned.
//
// The slot is reserved before create runs, so hooks used inside create get
// the slots after it.
func UseHook[T any](create func() T) (value T, reused bool) {
	owner := CurrentOwner()
	if owner == nil || !isInRender() {
		return create(), false
	}

	owner.hookMu.Lock()
	idx := owner.hookSlotIdx
	owner.hookSlotIdx++
	if idx < len(owner.hookSlots) && owner.hookSlots[idx] != nil {
		stored := owner.hookSlots[idx]
		owner.hookMu.Unlock()
		v, ok := stored.(T)
		if !ok {
			panic(fmt.Sprintf("reactive: hook slot %d holds %T", idx, stored))
		}
		return v, true
	}
	for len(owner.hookSlots) <= idx {
		owner.hookSlots = append(owner.hookSlots, nil)
	}
	owner.hookMu.Unlock()

	value = create()

	owner.hookMu.Lock()
	owner.hookSlots[idx] = value
	owner.hookMu.Unlock()
	return value, false
}

// InRender reports whether a scope render is active on this goroutine.
func InRender() bool {
	return isInRender()
}

// PanicError is returned by Owner.Run when the function panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("reactive: panic in owner scope: %v", e.Value)
}

// Unwrap exposes a panicked error value to errors.Is/As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
