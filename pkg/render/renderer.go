package render

import (
	"context"
	"log/slog"

	"github.com/vango-dev/suspense/pkg/hydration"
	"github.com/vango-dev/suspense/pkg/reactive"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Logger receives boundary failures and hydration mismatches.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Observer is notified about passes, boundaries and chunks.
	Observer Observer

	// ClientScript is the path of the client runtime added by RenderPage.
	// Empty means no client script.
	ClientScript string
}

// Renderer renders views with suspense boundaries. A Renderer holds no
// per-render state and may be shared between goroutines.
type Renderer struct {
	config   RendererConfig
	logger   *slog.Logger
	observer Observer
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	r := &Renderer{
		config:   config,
		logger:   config.Logger,
		observer: config.Observer,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	return r
}

// RenderToString renders view once. Boundaries with pending resources
// render their fallback; nothing waits for them.
func (r *Renderer) RenderToString(view View) (html string, err error) {
	ctx, end := r.observer.StartPass(context.Background(), ModeSinglePass)
	defer func() { end(err) }()

	d := r.newDocument(ctx, ModeSinglePass, view)
	defer d.dispose()

	html, _, err = d.render()
	return html, err
}

// RenderResolved renders view, waits for every boundary found pending and
// renders again, until a pass finds no pending boundary. The result is the
// document with every boundary showing its content.
func (r *Renderer) RenderResolved(ctx context.Context, view View) (html string, err error) {
	ctx, end := r.observer.StartPass(ctx, ModeSinglePass)
	defer func() { end(err) }()

	d := r.newDocument(ctx, ModeSinglePass, view)
	defer d.dispose()

	for {
		var pending []*boundary
		html, pending, err = d.render()
		if err != nil || len(pending) == 0 {
			return html, err
		}
		for i, b := range pending {
			if werr := b.sc.Wait(ctx); werr != nil {
				keys := make([]hydration.Key, 0, len(pending)-i)
				for _, rest := range pending[i:] {
					keys = append(keys, rest.key)
				}
				return "", unresolved(keys, werr)
			}
		}
	}
}

// render runs one pass over the whole document.
func (d *document) render() (string, []*boundary, error) {
	root, err := d.root()
	if err != nil {
		return "", nil, err
	}
	p := d.newPass()
	if err := p.node(root, d.owner); err != nil {
		return "", nil, err
	}
	return p.buf.String(), p.pending, nil
}

// renderBoundary renders a resolved boundary's children on their own, keyed
// from the boundary's subtree. It reports false when the boundary turned
// pending again during re-evaluation.
func (d *document) renderBoundary(b *boundary) (string, []*boundary, bool, error) {
	children, ready, err := d.evaluateSettled(b)
	if err != nil {
		d.drop(b)
		return "", nil, false, err
	}
	if !ready {
		return "", nil, false, nil
	}
	d.markResolved(b)

	p := d.newPass()
	p.hc.Enter(b.key.Subtree())
	if err := p.node(children, b.owner); err != nil {
		return "", nil, false, err
	}
	return p.buf.String(), p.pending, true, nil
}

// scopeOwner is the owner a boundary's fallback runs under.
func (d *document) scopeOwner(b *boundary) *reactive.Owner {
	if parent := b.owner.Parent(); parent != nil {
		return parent
	}
	return d.owner
}
