package render

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/reactive"
	"github.com/vango-dev/suspense/pkg/vdom"
)

func flushUntil(t *testing.T, lv *LiveView, n int) []Patch {
	t.Helper()
	var patches []Patch
	require.Eventually(t, func() bool {
		patches = append(patches, lv.Flush()...)
		return len(patches) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return patches
}

func TestLiveViewPatchesBoundaryOnResolve(t *testing.T) {
	g := newGate()
	lv, err := NewRenderer(RendererConfig{}).Mount(titled(g))
	require.NoError(t, err)
	defer lv.Close()

	assert.Equal(t, titledPending, lv.HTML())
	assert.Empty(t, lv.Flush())

	g.resolve("a", "42")
	patches := flushUntil(t, lv, 1)

	assert.Equal(t, []Patch{{
		Key:  "0-2",
		HTML: `<!--s:0-2--><span data-hk="0-2-0">42</span><!--/s:0-2-->`,
	}}, patches)
	assert.Equal(t, titledResolved, lv.HTML())
}

func TestLiveViewNestedBoundaryPatches(t *testing.T) {
	g := newGate()
	lv, err := NewRenderer(RendererConfig{}).Mount(nested(g))
	require.NoError(t, err)
	defer lv.Close()

	g.resolve("a", "42")
	patches := flushUntil(t, lv, 1)

	require.Len(t, patches, 1)
	assert.Equal(t, "0-1-1", patches[0].Key)
	assert.Equal(t,
		`<div data-hk="0-0"><!--s:0-1--><section data-hk="0-1-0"><!--s:0-1-1--><span data-hk="0-1-1-0">42</span><!--/s:0-1-1--></section><!--/s:0-1--></div>`,
		lv.HTML())
}

func TestLiveViewRun(t *testing.T) {
	g := newGate()
	lv, err := NewRenderer(RendererConfig{}).Mount(titled(g))
	require.NoError(t, err)
	defer lv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan []Patch, 1)
	done := make(chan error, 1)
	go func() {
		done <- lv.Run(ctx, func(p []Patch) error {
			got <- p
			return nil
		})
	}()

	g.resolve("a", "42")
	select {
	case patches := <-got:
		require.Len(t, patches, 1)
		assert.Equal(t, "0-2", patches[0].Key)
	case <-time.After(2 * time.Second):
		t.Fatal("no patches")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLiveViewHandleEvent(t *testing.T) {
	count := reactive.NewSignal(0)
	view := func() *vdom.VNode {
		return vdom.Div(
			vdom.Button(vdom.OnClick(func() { count.Update(func(n int) int { return n + 1 }) }), "inc"),
			vdom.Span(vdom.Textf("%d", count.Get())),
		)
	}

	lv, err := NewRenderer(RendererConfig{}).Mount(view)
	require.NoError(t, err)
	defer lv.Close()

	assert.Equal(t, `<div data-hk="0-0"><button data-on-click="true" data-hk="0-1">inc</button><span data-hk="0-2">0</span></div>`, lv.HTML())

	require.NoError(t, lv.HandleEvent("0-1", "click", ""))
	patches := lv.Flush()
	require.Len(t, patches, 1)
	assert.Equal(t, RootPatch, patches[0].Key)
	assert.Contains(t, patches[0].HTML, `<span data-hk="0-2">1</span>`)
	assert.Equal(t, 1, count.Peek())

	assert.True(t, errors.HasCode(lv.HandleEvent("0-9", "click", ""), "E044"))
	assert.True(t, errors.HasCode(lv.HandleEvent("0-1", "input", ""), "E004"))
	assert.True(t, errors.HasCode(lv.HandleEvent("garbage", "click", ""), "E044"))
}

func TestLiveViewHandleEventInsideBoundary(t *testing.T) {
	var clicked atomic.Bool
	view := func() *vdom.VNode {
		return vdom.Div(vdom.Suspense(nil, func() *vdom.VNode {
			return vdom.Button(vdom.OnClick(func() { clicked.Store(true) }), "go")
		}))
	}

	lv, err := NewRenderer(RendererConfig{}).Mount(view)
	require.NoError(t, err)
	defer lv.Close()

	require.NoError(t, lv.HandleEvent("0-1-0", "click", ""))
	lv.Flush()
	assert.True(t, clicked.Load())
}

func TestLiveViewMountFailsOnPanic(t *testing.T) {
	view := func() *vdom.VNode {
		return vdom.Suspense(nil, func() *vdom.VNode { panic("boom") })
	}
	_, err := NewRenderer(RendererConfig{}).Mount(view)
	assert.True(t, errors.HasCode(err, "E001"))
}

func TestLiveViewClose(t *testing.T) {
	lv, err := NewRenderer(RendererConfig{}).Mount(titled(newGate()))
	require.NoError(t, err)

	lv.Close()
	lv.Close()
	assert.Nil(t, lv.Flush())
	assert.True(t, errors.HasCode(lv.HandleEvent("0-1", "click", ""), "E005"))
}

func TestHydrateMatchingMarkup(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	server, err := r.RenderToString(titled(newGate()))
	require.NoError(t, err)

	lv, err := r.Mount(titled(newGate()))
	require.NoError(t, err)
	defer lv.Close()

	patches, err := lv.Hydrate(server)
	require.NoError(t, err)
	assert.Empty(t, patches)
}

func TestHydrateMismatchRebuildsBoundary(t *testing.T) {
	var logs bytes.Buffer
	r := NewRenderer(RendererConfig{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	lv, err := r.Mount(titled(newGate()))
	require.NoError(t, err)
	defer lv.Close()

	server := `<div data-hk="0-0"><h1 data-hk="0-1">Title</h1><!--s:0-2--><!--/s:0-2--><footer data-hk="0-3">end</footer></div>`
	patches, err := lv.Hydrate(server)
	require.NoError(t, err)

	assert.Equal(t, []Patch{{
		Key:  "0-2",
		HTML: `<!--s:0-2--><p data-hk="0-2f-0">Loading...</p><!--/s:0-2-->`,
	}}, patches)
	assert.Contains(t, logs.String(), "code=E040")
	assert.Contains(t, logs.String(), "rebuild=0-2")
}

func TestHydrateMismatchRebuildsRoot(t *testing.T) {
	var logs bytes.Buffer
	r := NewRenderer(RendererConfig{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	lv, err := r.Mount(titled(newGate()))
	require.NoError(t, err)
	defer lv.Close()

	patches, err := lv.Hydrate(`<div data-hk="0-0"></div>`)
	require.NoError(t, err)
	assert.Equal(t, []Patch{{Key: RootPatch, HTML: lv.HTML()}}, patches)
	assert.Contains(t, logs.String(), "code=E043")
}

func TestHydrateUnreadableMarkup(t *testing.T) {
	lv, err := NewRenderer(RendererConfig{}).Mount(titled(newGate()))
	require.NoError(t, err)
	defer lv.Close()

	_, err = lv.Hydrate(`<div data-hk="nope"></div>`)
	assert.True(t, errors.HasCode(err, "E041"))
}
