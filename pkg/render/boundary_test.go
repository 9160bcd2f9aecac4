package render

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/suspense/pkg/reactive"
	"github.com/vango-dev/suspense/pkg/resource"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// settlesMidRender returns a view whose boundary releases its resource and
// waits for it to settle after reading it, so the read saw it pending but
// the boundary has nothing pending by the time the children return.
func settlesMidRender() View {
	g := newGate()
	settled := make(chan struct{})
	var release, done sync.Once

	return func() *vdom.VNode {
		return vdom.Div(vdom.Suspense(
			func() *vdom.VNode { return vdom.P("Loading...") },
			func() *vdom.VNode {
				r := resource.NewUnkeyed(g.fetch("a"), resource.WithName("a")).
					OnSuccess(func(string) { done.Do(func() { close(settled) }) })
				res, ok := r.Read()
				if !ok {
					release.Do(func() { g.resolve("a", "42") })
					<-settled
					return vdom.Span(vdom.Text("..."))
				}
				return vdom.Span(vdom.Text(res.Value))
			},
		))
	}
}

const settledMarkup = `<div data-hk="0-0"><!--s:0-1--><span data-hk="0-1-0">42</span><!--/s:0-1--></div>`

func TestResourceSettlingDuringEvaluationIsRendered(t *testing.T) {
	r := NewRenderer(RendererConfig{})

	t.Run("resolved", func(t *testing.T) {
		html, err := r.RenderResolved(testContext(t), settlesMidRender())
		require.NoError(t, err)
		assert.Equal(t, settledMarkup, html)
	})

	t.Run("out-of-order", func(t *testing.T) {
		var sink BufferSink
		require.NoError(t, r.StreamOutOfOrder(testContext(t), settlesMidRender(), &sink))
		assert.Equal(t, settledMarkup, sink.String())
	})

	t.Run("in-order", func(t *testing.T) {
		var sink BufferSink
		require.NoError(t, r.StreamInOrder(testContext(t), settlesMidRender(), &sink))
		assert.Equal(t, settledMarkup, sink.String())
	})
}

func TestFallbackHooksSurvivePasses(t *testing.T) {
	g := newGate()
	var created, evals atomic.Int32

	// The children wait on "a" and only then start "b", so the boundary is
	// pending in two passes and its fallback runs twice.
	view := func() *vdom.VNode {
		return vdom.Div(vdom.Suspense(
			func() *vdom.VNode {
				reactive.UseHook(func() int { return int(created.Add(1)) })
				switch evals.Add(1) {
				case 1:
					g.resolve("a", "A")
				case 2:
					g.resolve("b", "B")
				}
				return vdom.P("Loading...")
			},
			func() *vdom.VNode {
				a := resource.NewUnkeyed(g.fetch("a"), resource.WithName("a"))
				res, ok := a.Read()
				if !ok {
					return vdom.Span(vdom.Text("..."))
				}
				return vdom.Section(vdom.Span(vdom.Text(res.Value)), asyncText(g, "b"))
			},
		))
	}

	r := NewRenderer(RendererConfig{})
	html, err := r.RenderResolved(testContext(t), view)
	require.NoError(t, err)

	assert.Contains(t, html, ">A<")
	assert.Contains(t, html, ">B<")
	assert.NotContains(t, html, "Loading")
	assert.EqualValues(t, 2, evals.Load())
	assert.EqualValues(t, 1, created.Load(), "fallback hook recreated on a later pass")
}
