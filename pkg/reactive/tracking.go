package reactive

import (
	"sync"

	"github.com/petermattis/goid"
)

// trackingContext holds the reactive state for a goroutine.
// Each goroutine has its own tracking context so that independent render
// passes can run concurrently without sharing a current owner or listener.
type trackingContext struct {
	// currentOwner is the Owner that will own newly created effects,
	// cleanups and context values.
	currentOwner *Owner

	// currentListener is what's currently tracking dependencies.
	// nil means reads don't create subscriptions.
	currentListener Listener

	// batchDepth tracks nested Batch() calls.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when a batch completes.
	pendingUpdates []Listener

	// renderDepth is > 0 while a scope render (StartRender/EndRender) is active.
	renderDepth int
}

// trackingContexts stores per-goroutine tracking contexts keyed by goroutine id.
var trackingContexts sync.Map

// getTrackingContext returns the tracking context for the current goroutine,
// creating it on first use.
func getTrackingContext() *trackingContext {
	gid := goid.Get()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// lookupTrackingContext returns the current goroutine's context without
// creating one, so goroutines that only read and write signals (fetches,
// transports) never allocate an entry.
func lookupTrackingContext() *trackingContext {
	if ctx, ok := trackingContexts.Load(goid.Get()); ok {
		return ctx.(*trackingContext)
	}
	return nil
}

// release drops the current goroutine's context once it holds no state.
func (ctx *trackingContext) release() {
	if ctx.currentOwner == nil && ctx.currentListener == nil && ctx.batchDepth == 0 && ctx.renderDepth == 0 {
		trackingContexts.Delete(goid.Get())
	}
}

func getCurrentListener() Listener {
	if ctx := lookupTrackingContext(); ctx != nil {
		return ctx.currentListener
	}
	return nil
}

// setCurrentListener sets the current listener and returns the previous one.
func setCurrentListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

// CurrentOwner returns the owner current on this goroutine, or nil.
func CurrentOwner() *Owner {
	if ctx := lookupTrackingContext(); ctx != nil {
		return ctx.currentOwner
	}
	return nil
}

// setCurrentOwner sets the current owner and returns the previous one.
func setCurrentOwner(o *Owner) *Owner {
	ctx := getTrackingContext()
	old := ctx.currentOwner
	ctx.currentOwner = o
	return old
}

func getBatchDepth() int {
	if ctx := lookupTrackingContext(); ctx != nil {
		return ctx.batchDepth
	}
	return 0
}

func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth reports whether the outermost batch just completed.
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

func drainPendingUpdates() []Listener {
	ctx := getTrackingContext()
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	return updates
}

func beginRender() {
	getTrackingContext().renderDepth++
}

func endRender() {
	ctx := getTrackingContext()
	if ctx.renderDepth > 0 {
		ctx.renderDepth--
	}
	ctx.release()
}

// isInRender reports whether a scope render is active on this goroutine.
func isInRender() bool {
	if ctx := lookupTrackingContext(); ctx != nil {
		return ctx.renderDepth > 0
	}
	return false
}

// WithOwner runs fn with owner as the current owner.
// This is used when spawning goroutines that need to create primitives
// belonging to a specific scope.
//
// Example:
//
//	go func() {
//	    WithOwner(parentOwner, func() {
//	        CreateEffect(...)
//	    })
//	}()
func WithOwner(owner *Owner, fn func()) {
	old := setCurrentOwner(owner)
	defer func() {
		setCurrentOwner(old)
		getTrackingContext().release()
	}()
	fn()
}

// WithListener runs fn with l as the listener for dependency tracking.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}
