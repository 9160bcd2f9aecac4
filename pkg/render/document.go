package render

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/hydration"
	"github.com/vango-dev/suspense/pkg/reactive"
	"github.com/vango-dev/suspense/pkg/suspense"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// View builds the root of a document. It is called once per pass under the
// document's root scope, so resources it creates keep their identity across
// passes.
type View func() *vdom.VNode

// document is the state shared by the passes of one render: the root scope
// and one scope per boundary key.
type document struct {
	ctx      context.Context
	mode     Mode
	view     View
	owner    *reactive.Owner
	logger   *slog.Logger
	observer Observer

	boundaries map[hydration.Key]*boundary
}

// boundary is the scope of one suspense boundary. It outlives a single pass
// so re-evaluating the boundary finds the same resources.
type boundary struct {
	key   hydration.Key
	node  *vdom.SuspenseNode
	owner *reactive.Owner
	sc    *suspense.Context

	// fallbackOwner scopes the fallback. It sits beside owner, not under
	// it, so fallback resources never suspend the boundary they stand in for.
	fallbackOwner *reactive.Owner

	// pendingSince is set the first time the boundary is seen pending.
	pendingSince time.Time

	// live view state
	effect  *reactive.Effect
	html    string
	mounted bool
}

func (r *Renderer) newDocument(ctx context.Context, mode Mode, view View) *document {
	return &document{
		ctx:        ctx,
		mode:       mode,
		view:       view,
		owner:      reactive.NewOwner(nil),
		logger:     r.logger,
		observer:   r.observer,
		boundaries: make(map[hydration.Key]*boundary),
	}
}

// scope returns the boundary for key, creating it beneath parent on first
// use. The suspense context is ambient on the boundary's owner.
func (d *document) scope(key hydration.Key, node *vdom.SuspenseNode, parent *reactive.Owner) *boundary {
	if b, ok := d.boundaries[key]; ok {
		b.node = node
		return b
	}

	b := &boundary{
		key:   key,
		node:  node,
		owner: reactive.NewOwner(parent),
		sc:    suspense.New(),
	}
	suspense.ProvideOn(b.owner, b.sc)
	b.owner.OnCleanup(b.sc.Dispose)
	d.boundaries[key] = b
	return b
}

// root evaluates the view under the root scope.
func (d *document) root() (*vdom.VNode, error) {
	var out *vdom.VNode
	if err := d.owner.Render(func() { out = expand(d.view()) }); err != nil {
		return nil, errors.New("E001").WithDetail("root view").Wrap(err)
	}
	return out, nil
}

// evaluate runs the boundary's children under its scope. Resources read by
// the children register with the boundary's context before this returns.
// After an error the caller drops the boundary so its context is never left
// pending.
func (d *document) evaluate(b *boundary) (*vdom.VNode, error) {
	var out *vdom.VNode
	err := b.owner.Render(func() { out = expand(b.node.RenderChildren()) })
	if err != nil {
		d.logger.Error("suspense boundary panicked", "code", "E001", "key", b.key.String(), "error", err)
		return nil, errors.New("E001").WithDetailf("boundary %s", b.key).Wrap(err)
	}
	return out, nil
}

// evaluateSettled evaluates the children until no resource of the boundary
// resolved while they ran, then reports readiness. A resource that settles
// after the children read it but before readiness is checked would
// otherwise leave its pending markup in a boundary reported as ready.
func (d *document) evaluateSettled(b *boundary) (*vdom.VNode, bool, error) {
	for {
		before := b.sc.Resolutions()
		children, err := d.evaluate(b)
		if err != nil {
			return nil, false, err
		}
		ready := b.ready()
		if b.sc.Resolutions() == before {
			return children, ready, nil
		}
	}
}

// fallback evaluates the boundary's fallback under its own scope beneath
// parent. The scope is kept across passes, so hooks in the fallback find the
// values they created on the first pass.
func (d *document) fallback(b *boundary, parent *reactive.Owner) (*vdom.VNode, *reactive.Owner, error) {
	if b.fallbackOwner == nil || b.fallbackOwner.IsDisposed() {
		b.fallbackOwner = reactive.NewOwner(parent)
	}
	var out *vdom.VNode
	if err := b.fallbackOwner.Render(func() { out = expand(b.node.RenderFallback()) }); err != nil {
		return nil, nil, errors.New("E001").WithDetailf("fallback of boundary %s", b.key).Wrap(err)
	}
	return out, b.fallbackOwner, nil
}

// ready reports whether the boundary has no pending resources.
func (b *boundary) ready() bool {
	return b.sc.PendingResources() == 0
}

func (d *document) markPending(b *boundary) {
	if b.pendingSince.IsZero() {
		b.pendingSince = time.Now()
	}
}

func (d *document) markResolved(b *boundary) {
	if b.pendingSince.IsZero() {
		return
	}
	d.observer.BoundaryResolved(d.ctx, d.mode, b.key, time.Since(b.pendingSince))
	b.pendingSince = time.Time{}
}

// drop disposes a boundary's scope and forgets it.
func (d *document) drop(b *boundary) {
	if d.boundaries[b.key] == b {
		delete(d.boundaries, b.key)
	}
	if b.fallbackOwner != nil {
		b.fallbackOwner.Dispose()
	}
	b.owner.Dispose()
}

func (d *document) dispose() {
	d.owner.Dispose()
}

// unresolved returns an E002 error naming the boundaries in keys.
func unresolved(keys []hydration.Key, cause error) error {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return errors.New("E002").WithDetail(strings.Join(names, ", ")).Wrap(cause)
}

// expand returns a copy of n with component nodes replaced by their output.
// Suspense nodes are copied as is; the walker evaluates them. The input tree
// is never modified.
func expand(n *vdom.VNode) *vdom.VNode {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case vdom.KindComponent:
		if n.Comp == nil {
			return nil
		}
		return expand(n.Comp.Render())
	case vdom.KindSuspense, vdom.KindText, vdom.KindRaw:
		cp := *n
		return &cp
	}

	cp := *n
	if len(n.Children) > 0 {
		cp.Children = make([]*vdom.VNode, 0, len(n.Children))
		for _, child := range n.Children {
			if c := expand(child); c != nil {
				cp.Children = append(cp.Children, c)
			}
		}
	}
	return &cp
}
