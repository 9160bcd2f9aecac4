package render

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/hydration"
	"github.com/vango-dev/suspense/pkg/reactive"
	"github.com/vango-dev/suspense/pkg/resource"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// RootPatch is the Patch key that replaces the whole document.
const RootPatch = "root"

// Patch replaces the markup of one boundary, markers included, or of the
// whole document when Key is RootPatch.
type Patch struct {
	Key  string `json:"key"`
	HTML string `json:"html"`
}

// LiveView is a mounted document in client-interactive mode.
//
// Every boundary is rendered by its own effect, which reads the boundary's
// readiness and so re-runs when the boundary flips between fallback and
// content. Resource completions and events are queued with Dispatch and
// applied by Flush on a single goroutine.
type LiveView struct {
	d      *document
	logger *slog.Logger
	root   *reactive.Effect

	// flushMu serializes everything that touches the document.
	flushMu sync.Mutex

	mu       sync.Mutex
	html     string
	mounted  bool
	queue    []func()
	patches  []Patch
	handlers map[hydration.Key]map[string]map[string]any

	wake   chan struct{}
	closed atomic.Bool
}

// Mount renders view in client-interactive mode. Resources created beneath
// the view dispatch their completions to the returned LiveView.
func (r *Renderer) Mount(view View) (*LiveView, error) {
	lv := &LiveView{
		d:        r.newDocument(context.Background(), ModeClient, view),
		logger:   r.logger,
		handlers: make(map[hydration.Key]map[string]map[string]any),
		wake:     make(chan struct{}, 1),
	}
	resource.ProvideDispatcher(lv.d.owner, lv)

	lv.flushMu.Lock()
	defer lv.flushMu.Unlock()

	var mountErr error
	reactive.WithOwner(lv.d.owner, func() {
		lv.root = reactive.CreateEffect(func() reactive.Cleanup {
			html, err := lv.renderRoot()
			if err != nil {
				if mountErr == nil {
					mountErr = err
				}
				lv.logger.Error("live view render failed", "code", errors.Code(err), "error", err)
				return nil
			}

			lv.mu.Lock()
			if lv.mounted && html != lv.html {
				lv.patches = append(lv.patches, Patch{Key: RootPatch, HTML: html})
			}
			lv.html = html
			lv.mounted = true
			lv.mu.Unlock()
			return nil
		}, reactive.EffectName("live:root"))
	})

	if mountErr != nil {
		lv.d.dispose()
		return nil, mountErr
	}
	return lv, nil
}

func (lv *LiveView) renderRoot() (string, error) {
	root, err := lv.d.root()
	if err != nil {
		return "", err
	}
	p := lv.newPass()
	if err := p.node(root, lv.d.owner); err != nil {
		return "", err
	}
	lv.setHandlers(hydration.Key{}, p.handlers)
	return p.buf.String(), nil
}

func (lv *LiveView) newPass() *pass {
	p := lv.d.newPass()
	p.handlers = make(map[string]map[string]any)
	p.nested = lv.boundary
	return p
}

// boundary returns the current markup of b, creating its effect on first
// use. Later calls re-render b with the closures of the latest parent
// render; the reads still count as dependencies of b's effect.
func (lv *LiveView) boundary(b *boundary) (string, error) {
	if b.effect == nil {
		var err error
		reactive.WithOwner(b.owner, func() {
			b.effect = reactive.CreateEffect(func() reactive.Cleanup {
				html, rerr := lv.renderBoundary(b)
				if rerr != nil {
					err = rerr
					lv.logger.Error("live boundary render failed", "key", b.key.String(), "code", errors.Code(rerr), "error", rerr)
					return nil
				}
				if b.mounted && html != b.html {
					lv.emit(b, html)
				}
				b.html = html
				b.mounted = true
				return nil
			}, reactive.EffectName("live:"+b.key.String()))
		})
		return b.html, err
	}

	var (
		html string
		err  error
	)
	reactive.WithListener(b.effect, func() {
		html, err = lv.renderBoundary(b)
	})
	if err != nil {
		return "", err
	}
	b.html = html
	return html, nil
}

// renderBoundary renders b with its markers, showing the children when the
// boundary is ready and the fallback otherwise. Readiness is read tracked.
func (lv *LiveView) renderBoundary(b *boundary) (string, error) {
	children, _, err := lv.d.evaluateSettled(b)
	if err != nil {
		// b's effect may be the one running; dispose it from the queue.
		lv.Dispatch(func() { lv.d.drop(b) })
		return "", err
	}
	ready := b.sc.Ready()
	lv.d.observer.Boundary(lv.d.ctx, ModeClient, b.key, ready)

	p := lv.newPass()
	if ready {
		lv.d.markResolved(b)
		err = p.content(b, children)
	} else {
		lv.d.markPending(b)
		err = p.fallbackContent(b, lv.d.scopeOwner(b))
	}
	if err != nil {
		return "", err
	}
	lv.setHandlers(b.key, p.handlers)
	return p.buf.String(), nil
}

func (lv *LiveView) setHandlers(scope hydration.Key, handlers map[string]map[string]any) {
	lv.mu.Lock()
	lv.handlers[scope] = handlers
	lv.mu.Unlock()
}

// emit queues a patch for b and splices the new markup into every cached
// markup that contains b.
func (lv *LiveView) emit(b *boundary, html string) {
	for _, other := range lv.d.boundaries {
		if other != b {
			other.html = splice(other.html, b.key, html)
		}
	}

	lv.mu.Lock()
	lv.html = splice(lv.html, b.key, html)
	lv.patches = append(lv.patches, Patch{Key: b.key.String(), HTML: html})
	lv.mu.Unlock()
}

// splice replaces boundary k, markers included, in html.
func splice(html string, k hydration.Key, replacement string) string {
	open := "<!--" + hydration.OpenMarker(k) + "-->"
	closing := "<!--" + hydration.CloseMarker(k) + "-->"
	i := strings.Index(html, open)
	if i < 0 {
		return html
	}
	j := strings.Index(html[i:], closing)
	if j < 0 {
		return html
	}
	return html[:i] + replacement + html[i+j+len(closing):]
}

// HTML returns the current markup of the document.
func (lv *LiveView) HTML() string {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.html
}

// Dispatch queues fn to run on the next Flush. It implements
// resource.Dispatcher.
func (lv *LiveView) Dispatch(fn func()) {
	if lv.closed.Load() {
		return
	}
	lv.mu.Lock()
	lv.queue = append(lv.queue, fn)
	lv.mu.Unlock()

	select {
	case lv.wake <- struct{}{}:
	default:
	}
}

// Flush applies queued work, runs the effects it scheduled and returns the
// patches produced since the last Flush.
func (lv *LiveView) Flush() []Patch {
	lv.flushMu.Lock()
	defer lv.flushMu.Unlock()

	if lv.closed.Load() {
		return nil
	}

	for {
		lv.mu.Lock()
		queue := lv.queue
		lv.queue = nil
		lv.mu.Unlock()

		if len(queue) == 0 && !lv.d.owner.HasPendingEffects() {
			break
		}
		for _, fn := range queue {
			fn()
		}
		lv.d.owner.RunPendingEffects()
	}

	lv.mu.Lock()
	patches := lv.patches
	lv.patches = nil
	lv.mu.Unlock()
	return patches
}

// Run flushes whenever work is dispatched and hands the resulting patches
// to apply, until ctx ends or apply fails.
func (lv *LiveView) Run(ctx context.Context, apply func([]Patch) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lv.wake:
			if lv.closed.Load() {
				return errors.New("E005")
			}
			if patches := lv.Flush(); len(patches) > 0 {
				if err := apply(patches); err != nil {
					return err
				}
			}
		}
	}
}

// HandleEvent queues the handler registered for event on the element with
// hydration key hk. The handler runs on the next Flush.
func (lv *LiveView) HandleEvent(hk, event, payload string) error {
	if lv.closed.Load() {
		return errors.New("E005")
	}
	key, err := hydration.ParseKey(hk)
	if err != nil {
		return errors.New("E044").WithDetail(hk).Wrap(err)
	}
	scope, _ := key.Boundary()

	lv.mu.Lock()
	events, found := lv.handlers[scope][hk]
	handler, ok := events[event]
	lv.mu.Unlock()

	if !found {
		return errors.New("E044").WithDetail(hk)
	}
	if !ok {
		return errors.New("E004").WithDetailf("%s on %s", event, hk)
	}

	lv.Dispatch(func() {
		if !vdom.Invoke(handler, payload) {
			lv.logger.Warn("event handler has unsupported type", "code", "E004", "hk", hk, "event", event)
		}
	})
	return nil
}

// Hydrate compares the keys in server markup with the keys this view
// produced. On a mismatch it logs the divergence and returns a patch that
// rebuilds the innermost boundary containing it, or the whole document.
// Markup that cannot be read returns an E041 error.
func (lv *LiveView) Hydrate(markup string) ([]Patch, error) {
	server, err := hydration.ExtractString(markup)
	if err != nil {
		return nil, errors.New("E041").Wrap(err)
	}

	lv.flushMu.Lock()
	defer lv.flushMu.Unlock()

	html := lv.HTML()
	client, err := hydration.ExtractString(html)
	if err != nil {
		return nil, errors.New("E041").WithDetail("client markup").Wrap(err)
	}

	m := hydration.Compare(server, client)
	if m == nil {
		return nil, nil
	}

	code := "E040"
	switch {
	case m.Client.IsZero():
		code = "E042"
	case m.Server.IsZero():
		code = "E043"
	}

	patch := Patch{Key: RootPatch, HTML: html}
	if k, ok := m.Boundary(); ok {
		if b, found := lv.d.boundaries[k]; found && b.mounted {
			patch = Patch{Key: k.String(), HTML: b.html}
		}
	}
	lv.logger.Warn("hydration mismatch",
		"code", code,
		"mismatch", m.String(),
		"rebuild", patch.Key,
	)
	return []Patch{patch}, nil
}

// Close disposes the document. Queued work is dropped and Run returns E005.
func (lv *LiveView) Close() {
	if lv.closed.Swap(true) {
		return
	}
	lv.flushMu.Lock()
	defer lv.flushMu.Unlock()
	lv.d.dispose()

	select {
	case lv.wake <- struct{}{}:
	default:
	}
}
