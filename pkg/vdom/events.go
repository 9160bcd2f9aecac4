package vdom

// event creates an EventHandler with the given name and handler.
// The name is prefixed with "on" (e.g., "click" becomes "onclick").
func event(name string, handler any) EventHandler {
	return EventHandler{Event: "on" + name, Handler: handler}
}

// OnClick handles click events. The handler is a func() or func(string).
func OnClick(handler any) EventHandler { return event("click", handler) }

// OnInput handles input events. The handler receives the new value.
func OnInput(handler func(string)) EventHandler { return event("input", handler) }

// OnSubmit handles form submission.
func OnSubmit(handler any) EventHandler { return event("submit", handler) }

// Invoke calls an event handler with payload. Handlers may be func() or
// func(string); other values report false.
func Invoke(handler any, payload string) bool {
	switch h := handler.(type) {
	case func():
		h()
	case func(string):
		h(payload)
	default:
		return false
	}
	return true
}
