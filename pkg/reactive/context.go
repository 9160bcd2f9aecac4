package reactive

// SetContext sets a context value on the current owner.
// The value is visible to the owner and its descendants via GetContext.
func SetContext(key, value any) {
	if owner := CurrentOwner(); owner != nil {
		owner.SetValue(key, value)
	}
}

// GetContext retrieves a context value from the nearest owner that provides it.
// Returns nil if no value is found.
func GetContext(key any) any {
	if owner := CurrentOwner(); owner != nil {
		return owner.GetValue(key)
	}
	return nil
}

// SetValue sets a value on this Owner.
func (o *Owner) SetValue(key, value any) {
	o.valuesMu.Lock()
	defer o.valuesMu.Unlock()

	if o.values == nil {
		o.values = make(map[any]any)
	}
	o.values[key] = value
}

// GetValue retrieves a value from this Owner or its parents.
func (o *Owner) GetValue(key any) any {
	o.valuesMu.RLock()
	if o.values != nil {
		if val, ok := o.values[key]; ok {
			o.valuesMu.RUnlock()
			return val
		}
	}
	o.valuesMu.RUnlock()

	if o.parent != nil {
		return o.parent.GetValue(key)
	}

	return nil
}

// Context is a typed context key with a default value.
//
// Example:
//
//	var Theme = reactive.CreateContext("light")
//
//	Theme.Provide("dark")   // on the current owner
//	theme := Theme.Use()    // from any descendant
type Context[T any] struct {
	key          any
	defaultValue T
}

type contextKey[T any] struct {
	ctx *Context[T]
}

// CreateContext creates a new context with the given default value.
func CreateContext[T any](defaultValue T) *Context[T] {
	ctx := &Context[T]{defaultValue: defaultValue}
	ctx.key = contextKey[T]{ctx: ctx}
	return ctx
}

// Provide stores value on the current owner.
func (c *Context[T]) Provide(value T) {
	SetContext(c.key, value)
}

// ProvideOn stores value on the given owner.
func (c *Context[T]) ProvideOn(owner *Owner, value T) {
	owner.SetValue(c.key, value)
}

// Use returns the nearest provided value, or the default.
func (c *Context[T]) Use() T {
	v, _ := c.Lookup()
	return v
}

// Lookup returns the nearest provided value and whether one was found.
func (c *Context[T]) Lookup() (T, bool) {
	raw := GetContext(c.key)
	if raw == nil {
		return c.defaultValue, false
	}
	v, ok := raw.(T)
	if !ok {
		return c.defaultValue, false
	}
	return v, true
}
