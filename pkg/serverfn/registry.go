package serverfn

import (
	"context"
	"sort"

	"github.com/vango-dev/suspense/internal/errors"
)

// Func runs a server function on an encoded payload.
type Func func(ctx context.Context, body []byte) ([]byte, error)

// Fn is a named server function.
type Fn struct {
	Name string
	Call Func
}

// Registry maps names to server functions. It is populated only by
// NewRegistry.
type Registry struct {
	fns map[string]Func
}

// NewRegistry builds a registry. Registering a name twice fails with E083.
func NewRegistry(fns ...Fn) (*Registry, error) {
	r := &Registry{fns: make(map[string]Func, len(fns))}
	for _, fn := range fns {
		if fn.Name == "" || fn.Call == nil {
			return nil, errors.Newf(errors.CategoryServerFn, "server function %q has no name or body", fn.Name)
		}
		if _, dup := r.fns[fn.Name]; dup {
			return nil, errors.New("E083").WithDetailf("%q is registered twice", fn.Name)
		}
		r.fns[fn.Name] = fn.Call
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error.
func MustRegistry(fns ...Fn) *Registry {
	r, err := NewRegistry(fns...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named function. An unknown name fails with E080 and a
// function error is wrapped in E081.
func (r *Registry) Call(ctx context.Context, name string, body []byte) ([]byte, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, errors.New("E080").WithDetailf("no server function named %q", name)
	}
	out, err := fn(ctx, body)
	if err != nil {
		return nil, errors.FromError(err, "E081")
	}
	return out, nil
}
