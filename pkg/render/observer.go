package render

import (
	"context"
	"time"

	"github.com/vango-dev/suspense/pkg/hydration"
)

// Observer is notified about render passes and boundaries. Telemetry
// implements it; the zero Renderer uses a no-op observer.
type Observer interface {
	// StartPass is called when a driver starts. The returned function is
	// called with the driver's result when it finishes.
	StartPass(ctx context.Context, mode Mode) (context.Context, func(error))

	// Boundary is called each time the walker decides a boundary.
	Boundary(ctx context.Context, mode Mode, key hydration.Key, ready bool)

	// BoundaryResolved is called when a boundary first shown as pending is
	// emitted with its content. wait is the time since it was first seen
	// pending.
	BoundaryResolved(ctx context.Context, mode Mode, key hydration.Key, wait time.Duration)

	// Chunk is called for every chunk handed to a sink.
	Chunk(ctx context.Context, mode Mode, size int)
}

type nopObserver struct{}

func (nopObserver) StartPass(ctx context.Context, _ Mode) (context.Context, func(error)) {
	return ctx, func(error) {}
}
func (nopObserver) Boundary(context.Context, Mode, hydration.Key, bool)                   {}
func (nopObserver) BoundaryResolved(context.Context, Mode, hydration.Key, time.Duration) {}
func (nopObserver) Chunk(context.Context, Mode, int)                                      {}

// MultiObserver fans notifications out to several observers.
func MultiObserver(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) StartPass(ctx context.Context, mode Mode) (context.Context, func(error)) {
	ends := make([]func(error), 0, len(m))
	for _, o := range m {
		var end func(error)
		ctx, end = o.StartPass(ctx, mode)
		ends = append(ends, end)
	}
	return ctx, func(err error) {
		for i := len(ends) - 1; i >= 0; i-- {
			ends[i](err)
		}
	}
}

func (m multiObserver) Boundary(ctx context.Context, mode Mode, key hydration.Key, ready bool) {
	for _, o := range m {
		o.Boundary(ctx, mode, key, ready)
	}
}

func (m multiObserver) BoundaryResolved(ctx context.Context, mode Mode, key hydration.Key, wait time.Duration) {
	for _, o := range m {
		o.BoundaryResolved(ctx, mode, key, wait)
	}
}

func (m multiObserver) Chunk(ctx context.Context, mode Mode, size int) {
	for _, o := range m {
		o.Chunk(ctx, mode, size)
	}
}
