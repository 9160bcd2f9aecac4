package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/suspense/pkg/hydration"
	"github.com/vango-dev/suspense/pkg/reactive"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// StreamChunk is one step of an in-order stream: either markup that can be
// written now, or a producer that blocks until a boundary resolves and
// returns the chunks standing in its place.
type StreamChunk struct {
	Sync  string
	Async func(ctx context.Context) ([]StreamChunk, error)
}

// pass renders one scope of a document into markup.
type pass struct {
	d   *document
	hc  *hydration.Context
	buf strings.Builder

	// out collects finished chunks in in-order mode.
	out []StreamChunk

	// pending lists boundaries emitted with their fallback.
	pending []*boundary

	// handlers maps element keys to their event handlers when non-nil.
	handlers map[string]map[string]any

	// nested renders a boundary in client mode.
	nested func(b *boundary) (string, error)
}

func (d *document) newPass() *pass {
	return &pass{d: d, hc: hydration.NewContext()}
}

// chunks returns the pass output as in-order chunks.
func (p *pass) chunks() []StreamChunk {
	p.flushSync()
	return p.out
}

func (p *pass) flushSync() {
	if p.buf.Len() == 0 {
		return
	}
	p.out = append(p.out, StreamChunk{Sync: p.buf.String()})
	p.buf.Reset()
}

func (p *pass) comment(text string) {
	p.buf.WriteString("<!--")
	p.buf.WriteString(text)
	p.buf.WriteString("-->")
}

// node renders n, which belongs to the scope owned by scope.
func (p *pass) node(n *vdom.VNode, scope *reactive.Owner) error {
	if n == nil {
		return nil
	}

	switch n.Kind {
	case vdom.KindElement:
		return p.element(n, scope)
	case vdom.KindText:
		p.buf.WriteString(escapeHTML(n.Text))
		return nil
	case vdom.KindRaw:
		p.buf.WriteString(n.Text)
		return nil
	case vdom.KindFragment:
		return p.children(n, scope)
	case vdom.KindComponent:
		return p.node(expand(n), scope)
	case vdom.KindSuspense:
		return p.suspense(n, scope)
	default:
		return fmt.Errorf("render: unknown node kind: %d", n.Kind)
	}
}

func (p *pass) children(n *vdom.VNode, scope *reactive.Owner) error {
	for _, child := range n.Children {
		if err := p.node(child, scope); err != nil {
			return err
		}
	}
	return nil
}

// element renders an HTML element with its attributes and children.
func (p *pass) element(n *vdom.VNode, scope *reactive.Owner) error {
	key := p.hc.Next()
	n.HK = key.String()

	p.buf.WriteByte('<')
	p.buf.WriteString(n.Tag)
	p.attributes(n)
	fmt.Fprintf(&p.buf, ` %s="%s"`, hydration.Attr, n.HK)
	p.registerHandlers(n)

	if isVoidElement(n.Tag) {
		p.buf.WriteByte('>')
		return nil
	}
	p.buf.WriteByte('>')

	if rawHTML, ok := n.Props["dangerouslySetInnerHTML"].(string); ok {
		p.buf.WriteString(rawHTML)
	} else if err := p.children(n, scope); err != nil {
		return err
	}

	fmt.Fprintf(&p.buf, "</%s>", n.Tag)
	return nil
}

// suspense renders a boundary. The children are always evaluated first so
// every resource they read has registered before readiness is decided.
func (p *pass) suspense(n *vdom.VNode, scope *reactive.Owner) error {
	key := p.hc.Next()
	n.HK = key.String()
	b := p.d.scope(key, n.Boundary, scope)

	if p.nested != nil {
		html, err := p.nested(b)
		if err != nil {
			return err
		}
		p.buf.WriteString(html)
		p.hc.ContinueFrom(key)
		return nil
	}

	children, ready, err := p.d.evaluateSettled(b)
	if err != nil {
		p.d.drop(b)
		return err
	}

	p.d.observer.Boundary(p.d.ctx, p.d.mode, key, ready)

	switch {
	case ready:
		p.d.markResolved(b)
		if err := p.content(b, children); err != nil {
			return err
		}

	case p.d.mode == ModeInOrder:
		p.d.markPending(b)
		p.flushSync()
		p.out = append(p.out, StreamChunk{Async: p.d.inOrder(b)})

	default:
		p.d.markPending(b)
		p.pending = append(p.pending, b)
		if err := p.fallbackContent(b, scope); err != nil {
			return err
		}
	}

	p.hc.ContinueFrom(key)
	return nil
}

// content writes the boundary markers around its children.
func (p *pass) content(b *boundary, children *vdom.VNode) error {
	p.comment(hydration.OpenMarker(b.key))
	p.hc.Enter(b.key.Subtree())
	if err := p.node(children, b.owner); err != nil {
		return err
	}
	p.comment(hydration.CloseMarker(b.key))
	return nil
}

// fallbackContent writes the boundary markers around its fallback.
func (p *pass) fallbackContent(b *boundary, scope *reactive.Owner) error {
	fb, owner, err := p.d.fallback(b, scope)
	if err != nil {
		return err
	}
	p.comment(hydration.OpenMarker(b.key))
	p.hc.Enter(b.key.FallbackSubtree())
	if err := p.node(fb, owner); err != nil {
		return err
	}
	p.comment(hydration.CloseMarker(b.key))
	return nil
}

// inOrder returns the producer standing in for a pending boundary in an
// in-order stream. It waits, re-evaluates the children and renders the
// boundary as RenderResolved would.
func (d *document) inOrder(b *boundary) func(ctx context.Context) ([]StreamChunk, error) {
	return func(ctx context.Context) ([]StreamChunk, error) {
		for {
			if err := b.sc.Wait(ctx); err != nil {
				return nil, unresolved([]hydration.Key{b.key}, err)
			}
			children, ready, err := d.evaluateSettled(b)
			if err != nil {
				d.drop(b)
				return nil, err
			}
			if !ready {
				continue
			}
			d.markResolved(b)

			p := d.newPass()
			if err := p.content(b, children); err != nil {
				return nil, err
			}
			return p.chunks(), nil
		}
	}
}

// attributes renders all attributes for an element.
func (p *pass) attributes(n *vdom.VNode) {
	if n.Props == nil {
		return
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(n.Props))
	for key := range n.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := n.Props[key]

		if strings.HasPrefix(key, "_") {
			continue
		}
		// Event handlers are registered, not rendered
		if strings.HasPrefix(key, "on") && isEventHandler(value) {
			continue
		}

		switch key {
		case "className":
			key = "class"
		case "htmlFor":
			key = "for"
		case "dangerouslySetInnerHTML", "key":
			continue
		}

		if isBooleanAttr(key) {
			if b, ok := value.(bool); ok {
				if b {
					p.buf.WriteByte(' ')
					p.buf.WriteString(key)
				}
				continue
			}
		}

		if s := attrToString(value); s != "" {
			fmt.Fprintf(&p.buf, ` %s="%s"`, key, escapeAttr(s))
		}
	}

	// Event markers for client-side binding
	for _, key := range keys {
		if strings.HasPrefix(key, "on") && isEventHandler(n.Props[key]) {
			fmt.Fprintf(&p.buf, ` data-on-%s="true"`, strings.ToLower(key[2:]))
		}
	}
}

func (p *pass) registerHandlers(n *vdom.VNode) {
	if p.handlers == nil {
		return
	}
	for key, value := range n.Props {
		if !strings.HasPrefix(key, "on") || !isEventHandler(value) {
			continue
		}
		events := p.handlers[n.HK]
		if events == nil {
			events = make(map[string]any)
			p.handlers[n.HK] = events
		}
		events[strings.ToLower(key[2:])] = value
	}
}

// isEventHandler returns true if the value looks like an event handler.
func isEventHandler(value any) bool {
	if value == nil {
		return false
	}
	switch value.(type) {
	case func(), func(string):
		return true
	case vdom.EventHandler:
		return true
	default:
		return strings.HasPrefix(fmt.Sprintf("%T", value), "func")
	}
}

// attrToString converts an attribute value to a string.
func attrToString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
