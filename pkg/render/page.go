package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vango-dev/suspense/internal/errors"
)

// PageData contains all data needed to render a complete HTML page.
type PageData struct {
	// Body is the root view for the page content
	Body View

	// Title is the page title
	Title string

	// Meta contains meta tags for the page
	Meta []MetaTag

	// Links contains link tags (stylesheets, favicon, etc.)
	Links []LinkTag

	// Scripts contains script tags to include
	Scripts []ScriptTag

	// Styles contains inline CSS styles
	Styles []string

	// StyleSheets contains paths to external stylesheets
	StyleSheets []string

	// Lang is the language attribute for the html element
	// Defaults to "en" if not specified
	Lang string
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name      string // name attribute
	Content   string // content attribute
	Property  string // property attribute (for OpenGraph)
	HTTPEquiv string // http-equiv attribute
	Charset   string // charset attribute
}

// LinkTag represents a link element in the document head.
type LinkTag struct {
	Rel         string // rel attribute
	Href        string // href attribute
	Type        string // type attribute
	Sizes       string // sizes attribute
	CrossOrigin string // crossorigin attribute
	Media       string // media attribute
}

// ScriptTag represents a script element.
type ScriptTag struct {
	Src    string // src attribute
	Type   string // type attribute
	Defer  bool   // defer attribute
	Async  bool   // async attribute
	Module bool   // type="module"
	Inline string // inline script content
}

// bootstrapScript swaps a streamed template in between the markers of its
// boundary.
const bootstrapScript = `window.__suspense={resolve:function(k){` +
	`var t=document.querySelector('template[data-suspense="'+k+'"]');if(!t)return;` +
	`var w=document.createTreeWalker(document.body,NodeFilter.SHOW_COMMENT),o=null,c=null,n;` +
	`while((n=w.nextNode())){if(n.nodeValue==="s:"+k)o=n;else if(o&&n.nodeValue==="/s:"+k){c=n;break}}` +
	`if(!o||!c)return;while(o.nextSibling&&o.nextSibling!==c)o.parentNode.removeChild(o.nextSibling);` +
	`c.parentNode.insertBefore(t.content,c);t.remove();}};`

// RenderPage renders a complete HTML document to w in the given mode.
//
// ModeSinglePass and ModeClient write the document once, with every
// boundary resolved. The streaming modes flush the head first, then the
// body chunks as the driver produces them; the closing tags come last.
func (r *Renderer) RenderPage(ctx context.Context, w io.Writer, mode Mode, page PageData) error {
	sink := NewWriterSink(w)
	if mode.Streaming() && !sink.CanFlush() {
		r.logger.Warn("response cannot be flushed; chunks are buffered", "code", "E061", "mode", mode.String())
	}

	var open strings.Builder
	if err := r.openDocument(&open, mode, page); err != nil {
		return err
	}

	switch mode {
	case ModeOutOfOrder, ModeInOrder:
		if err := sink.WriteChunk(open.String()); err != nil {
			return errors.New("E060").Wrap(err)
		}
		var err error
		if mode == ModeOutOfOrder {
			err = r.StreamOutOfOrder(ctx, page.Body, sink)
		} else {
			err = r.StreamInOrder(ctx, page.Body, sink)
		}
		if err != nil {
			return err
		}

	default:
		body, err := r.RenderResolved(ctx, page.Body)
		if err != nil {
			return err
		}
		open.WriteString(body)
		if err := sink.WriteChunk(open.String()); err != nil {
			return errors.New("E060").Wrap(err)
		}
	}

	var closing strings.Builder
	if err := r.closeDocument(&closing, page); err != nil {
		return err
	}
	if err := sink.WriteChunk(closing.String()); err != nil {
		return errors.New("E060").Wrap(err)
	}
	return nil
}

// openDocument writes everything up to and including the body start tag.
func (r *Renderer) openDocument(w io.Writer, mode Mode, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	// DOCTYPE
	if _, err := w.Write([]byte("<!DOCTYPE html>\n")); err != nil {
		return err
	}

	// HTML tag with lang
	if _, err := fmt.Fprintf(w, `<html lang="%s">`+"\n", escapeAttr(lang)); err != nil {
		return err
	}

	if err := renderHead(w, mode, page); err != nil {
		return err
	}

	_, err := w.Write([]byte("<body>\n"))
	return err
}

// closeDocument writes body scripts, the client script and the closing tags.
func (r *Renderer) closeDocument(w io.Writer, page PageData) error {
	if _, err := w.Write([]byte("\n")); err != nil {
		return err
	}
	for _, script := range page.Scripts {
		if !script.Defer && !script.Async {
			if err := renderScriptTag(w, script); err != nil {
				return err
			}
		}
	}
	if r.config.ClientScript != "" {
		if _, err := fmt.Fprintf(w, "  <script src=\"%s\" defer></script>\n", escapeAttr(r.config.ClientScript)); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("</body>\n</html>\n"))
	return err
}

// renderHead renders the document head section.
func renderHead(w io.Writer, mode Mode, page PageData) error {
	if _, err := w.Write([]byte("<head>\n")); err != nil {
		return err
	}

	// Charset
	if _, err := w.Write([]byte(`  <meta charset="utf-8">` + "\n")); err != nil {
		return err
	}

	// Viewport
	if _, err := w.Write([]byte(`  <meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")); err != nil {
		return err
	}

	// Title
	if page.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(page.Title)); err != nil {
			return err
		}
	}

	// Meta tags
	for _, meta := range page.Meta {
		if err := renderMetaTag(w, meta); err != nil {
			return err
		}
	}

	// Link tags (stylesheets, favicon, etc.)
	for _, link := range page.Links {
		if err := renderLinkTag(w, link); err != nil {
			return err
		}
	}

	// Stylesheets
	for _, href := range page.StyleSheets {
		if _, err := fmt.Fprintf(w, `  <link rel="stylesheet" href="%s">`+"\n", escapeAttr(href)); err != nil {
			return err
		}
	}

	// Inline styles
	for _, style := range page.Styles {
		if _, err := fmt.Fprintf(w, "  <style>%s</style>\n", style); err != nil {
			return err
		}
	}

	// Streaming bootstrap
	if mode == ModeOutOfOrder {
		if _, err := fmt.Fprintf(w, "  <script>%s</script>\n", bootstrapScript); err != nil {
			return err
		}
	}

	// Scripts in head (defer/async)
	for _, script := range page.Scripts {
		if script.Defer || script.Async {
			if err := renderScriptTag(w, script); err != nil {
				return err
			}
		}
	}

	if _, err := w.Write([]byte("</head>\n")); err != nil {
		return err
	}

	return nil
}

// renderMetaTag renders a meta element.
func renderMetaTag(w io.Writer, meta MetaTag) error {
	if _, err := w.Write([]byte("  <meta")); err != nil {
		return err
	}

	if meta.Charset != "" {
		if _, err := fmt.Fprintf(w, ` charset="%s"`, escapeAttr(meta.Charset)); err != nil {
			return err
		}
	}

	if meta.Name != "" {
		if _, err := fmt.Fprintf(w, ` name="%s"`, escapeAttr(meta.Name)); err != nil {
			return err
		}
	}

	if meta.Property != "" {
		if _, err := fmt.Fprintf(w, ` property="%s"`, escapeAttr(meta.Property)); err != nil {
			return err
		}
	}

	if meta.HTTPEquiv != "" {
		if _, err := fmt.Fprintf(w, ` http-equiv="%s"`, escapeAttr(meta.HTTPEquiv)); err != nil {
			return err
		}
	}

	if meta.Content != "" {
		if _, err := fmt.Fprintf(w, ` content="%s"`, escapeAttr(meta.Content)); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte(">\n")); err != nil {
		return err
	}

	return nil
}

// renderLinkTag renders a link element.
func renderLinkTag(w io.Writer, link LinkTag) error {
	if _, err := w.Write([]byte("  <link")); err != nil {
		return err
	}

	if link.Rel != "" {
		if _, err := fmt.Fprintf(w, ` rel="%s"`, escapeAttr(link.Rel)); err != nil {
			return err
		}
	}

	if link.Href != "" {
		if _, err := fmt.Fprintf(w, ` href="%s"`, escapeAttr(link.Href)); err != nil {
			return err
		}
	}

	if link.Type != "" {
		if _, err := fmt.Fprintf(w, ` type="%s"`, escapeAttr(link.Type)); err != nil {
			return err
		}
	}

	if link.Sizes != "" {
		if _, err := fmt.Fprintf(w, ` sizes="%s"`, escapeAttr(link.Sizes)); err != nil {
			return err
		}
	}

	if link.CrossOrigin != "" {
		if _, err := fmt.Fprintf(w, ` crossorigin="%s"`, escapeAttr(link.CrossOrigin)); err != nil {
			return err
		}
	}

	if link.Media != "" {
		if _, err := fmt.Fprintf(w, ` media="%s"`, escapeAttr(link.Media)); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte(">\n")); err != nil {
		return err
	}

	return nil
}

// renderScriptTag renders a script element.
func renderScriptTag(w io.Writer, script ScriptTag) error {
	if _, err := w.Write([]byte("  <script")); err != nil {
		return err
	}

	if script.Src != "" {
		if _, err := fmt.Fprintf(w, ` src="%s"`, escapeAttr(script.Src)); err != nil {
			return err
		}
	}

	if script.Module {
		if _, err := w.Write([]byte(` type="module"`)); err != nil {
			return err
		}
	} else if script.Type != "" {
		if _, err := fmt.Fprintf(w, ` type="%s"`, escapeAttr(script.Type)); err != nil {
			return err
		}
	}

	if script.Defer {
		if _, err := w.Write([]byte(" defer")); err != nil {
			return err
		}
	}

	if script.Async {
		if _, err := w.Write([]byte(" async")); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte(">")); err != nil {
		return err
	}

	if script.Inline != "" {
		if _, err := w.Write([]byte(script.Inline)); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte("</script>\n")); err != nil {
		return err
	}

	return nil
}
