package suspense

import "github.com/vango-dev/suspense/pkg/reactive"

var ambient = reactive.CreateContext[*Context](nil)

// Provide installs c as the ambient suspense context of the current owner.
func Provide(c *Context) {
	ambient.Provide(c)
}

// ProvideOn installs c as the ambient suspense context of owner.
func ProvideOn(owner *reactive.Owner, c *Context) {
	ambient.ProvideOn(owner, c)
}

// Current returns the nearest enclosing suspense context, or nil when there
// is none or it has been disposed.
func Current() *Context {
	c, ok := ambient.Lookup()
	if !ok || c == nil || c.IsDisposed() {
		return nil
	}
	return c
}
