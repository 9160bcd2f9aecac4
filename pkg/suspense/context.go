package suspense

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/suspense/pkg/reactive"
)

// ErrDisposed is returned by Wait when the context was disposed while
// resources were still pending.
var ErrDisposed = errors.New("suspense: context disposed while pending")

var contextIDs atomic.Uint64

// Context is the pending-resource counter of one suspense boundary.
type Context struct {
	id uint64

	mu sync.Mutex

	// pending is the authoritative count, guarded by mu.
	pending int

	// count mirrors pending into the reactive graph so Ready can be
	// tracked. It is written outside mu, so subscribers that run
	// synchronously may call back into the context.
	count *reactive.Signal[int]

	// done is closed whenever the count is zero and replaced when it leaves
	// zero.
	done chan struct{}

	disposed atomic.Bool

	// registered counts TrackPending calls over the context's lifetime.
	registered atomic.Uint64

	// resolutions counts TrackResolved calls that lowered the count.
	resolutions atomic.Uint64
}

// New creates a Context with no pending resources.
func New() *Context {
	done := make(chan struct{})
	close(done)
	return &Context{
		id:    contextIDs.Add(1),
		count: reactive.NewSignal(0),
		done:  done,
	}
}

// ID returns a process-unique identifier for the context.
func (c *Context) ID() uint64 {
	return c.id
}

// TrackPending records that one more resource is pending.
func (c *Context) TrackPending() {
	if c.disposed.Load() {
		return
	}

	c.mu.Lock()
	if c.disposed.Load() {
		c.mu.Unlock()
		return
	}
	if c.pending == 0 {
		c.done = make(chan struct{})
	}
	c.pending++
	c.registered.Add(1)
	c.mu.Unlock()

	c.publish()
}

// TrackResolved records that one pending resource settled.
// The count never goes below zero.
func (c *Context) TrackResolved() {
	if c.disposed.Load() {
		return
	}

	c.mu.Lock()
	if c.disposed.Load() || c.pending == 0 {
		c.mu.Unlock()
		return
	}
	c.pending--
	c.resolutions.Add(1)
	if c.pending == 0 {
		close(c.done)
	}
	c.mu.Unlock()

	c.publish()
}

// publish copies the latest count into the signal. The signal's own lock
// orders concurrent publishes, and each one reads the count afresh, so the
// last write always carries the current value.
func (c *Context) publish() {
	c.count.Update(func(int) int {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.pending
	})
}

// Ready reports whether no resources are pending. It is a reactive read:
// the current listener is re-run when readiness may have changed.
func (c *Context) Ready() bool {
	return c.count.Get() == 0
}

// PendingResources returns the raw pending count without tracking.
func (c *Context) PendingResources() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Resolutions returns how many times a pending resource has settled over
// the context's lifetime. A change between two reads means some resource
// resolved in between.
func (c *Context) Resolutions() uint64 {
	return c.resolutions.Load()
}

// Registered returns how many resources have registered over the context's
// lifetime.
func (c *Context) Registered() uint64 {
	return c.registered.Load()
}

// Done returns a channel that is closed while the pending count is zero.
// A new channel is handed out each time the count leaves zero.
func (c *Context) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Wait blocks until no resources are pending or ctx is done.
func (c *Context) Wait(ctx context.Context) error {
	for {
		select {
		case <-c.Done():
			if c.disposed.Load() && c.PendingResources() > 0 {
				return ErrDisposed
			}
			if c.PendingResources() == 0 || c.disposed.Load() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Dispose tears the context down. Later TrackPending and TrackResolved
// calls are no-ops and waiters are released.
func (c *Context) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed.Swap(true) {
		return
	}
	if c.pending > 0 {
		close(c.done)
	}
}

// IsDisposed reports whether Dispose has been called.
func (c *Context) IsDisposed() bool {
	return c.disposed.Load()
}
