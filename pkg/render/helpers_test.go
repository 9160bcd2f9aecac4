package render

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vango-dev/suspense/pkg/hydration"
	"github.com/vango-dev/suspense/pkg/resource"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// gate hands out fetchers that block until the test releases them by name.
type gate struct {
	mu    sync.Mutex
	chans map[string]chan gateResult
}

type gateResult struct {
	value string
	err   error
}

func newGate() *gate {
	return &gate{chans: make(map[string]chan gateResult)}
}

func (g *gate) ch(name string) chan gateResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.chans[name]
	if !ok {
		c = make(chan gateResult, 1)
		g.chans[name] = c
	}
	return c
}

func (g *gate) fetch(name string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		select {
		case r := <-g.ch(name):
			return r.value, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (g *gate) resolve(name, value string) {
	g.ch(name) <- gateResult{value: value}
}

func (g *gate) fail(name string, err error) {
	g.ch(name) <- gateResult{err: err}
}

// asyncText reads a gated resource and renders its state.
func asyncText(g *gate, name string) *vdom.VNode {
	r := resource.NewUnkeyed(g.fetch(name), resource.WithName(name))
	res, ok := r.Read()
	switch {
	case !ok:
		return vdom.Span(vdom.Text("..."))
	case res.Err != nil:
		return vdom.Span(vdom.Class("error"), vdom.Text("error: "+res.Err.Error()))
	default:
		return vdom.Span(vdom.Text(res.Value))
	}
}

// titled is the document most tests render: one boundary between two
// static elements.
func titled(g *gate) View {
	return func() *vdom.VNode {
		return vdom.Div(
			vdom.H1("Title"),
			vdom.Suspense(
				func() *vdom.VNode { return vdom.P("Loading...") },
				func() *vdom.VNode { return asyncText(g, "a") },
			),
			vdom.Footer("end"),
		)
	}
}

const (
	titledPending  = `<div data-hk="0-0"><h1 data-hk="0-1">Title</h1><!--s:0-2--><p data-hk="0-2f-0">Loading...</p><!--/s:0-2--><footer data-hk="0-3">end</footer></div>`
	titledResolved = `<div data-hk="0-0"><h1 data-hk="0-1">Title</h1><!--s:0-2--><span data-hk="0-2-0">42</span><!--/s:0-2--><footer data-hk="0-3">end</footer></div>`
)

// boundaryEvent is one Boundary notification.
type boundaryEvent struct {
	key   string
	ready bool
}

// recorder is an Observer that keeps every notification.
type recorder struct {
	mu         sync.Mutex
	passes     []Mode
	ended      []error
	boundaries []boundaryEvent
	resolved   []string
	chunks     int
}

func (r *recorder) StartPass(ctx context.Context, mode Mode) (context.Context, func(error)) {
	r.mu.Lock()
	r.passes = append(r.passes, mode)
	r.mu.Unlock()
	return ctx, func(err error) {
		r.mu.Lock()
		r.ended = append(r.ended, err)
		r.mu.Unlock()
	}
}

func (r *recorder) Boundary(_ context.Context, _ Mode, key hydration.Key, ready bool) {
	r.mu.Lock()
	r.boundaries = append(r.boundaries, boundaryEvent{key: key.String(), ready: ready})
	r.mu.Unlock()
}

func (r *recorder) BoundaryResolved(_ context.Context, _ Mode, key hydration.Key, _ time.Duration) {
	r.mu.Lock()
	r.resolved = append(r.resolved, key.String())
	r.mu.Unlock()
}

func (r *recorder) Chunk(context.Context, Mode, int) {
	r.mu.Lock()
	r.chunks++
	r.mu.Unlock()
}

// lastReady returns the readiness last reported for key.
func (r *recorder) lastReady(key string) (ready, seen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.boundaries) - 1; i >= 0; i-- {
		if r.boundaries[i].key == key {
			return r.boundaries[i].ready, true
		}
	}
	return false, false
}

// keysOf extracts the hydration keys of markup.
func keysOf(t *testing.T, markup string) []string {
	t.Helper()
	keys, err := hydration.ExtractString(markup)
	require.NoError(t, err)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
