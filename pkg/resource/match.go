package resource

import "github.com/vango-dev/suspense/pkg/vdom"

// Handler renders one state of a resource.
type Handler[T any] interface {
	handle(state State, res Result[T]) *vdom.VNode
}

// Match renders the first handler that accepts the resource's current
// state. It reads the resource, so it registers with the ambient suspense
// context like Read does.
func (r *Resource[K, T]) Match(handlers ...Handler[T]) *vdom.VNode {
	res, ok := r.Read()
	state := Resolved
	if !ok {
		state = r.state.Peek()
	}
	for _, h := range handlers {
		if node := h.handle(state, res); node != nil {
			return node
		}
	}
	return nil
}

type pendingHandler[T any] struct {
	fn func() *vdom.VNode
}

func (h pendingHandler[T]) handle(state State, _ Result[T]) *vdom.VNode {
	if state != Resolved {
		return h.fn()
	}
	return nil
}

type errorHandler[T any] struct {
	fn func(error) *vdom.VNode
}

func (h errorHandler[T]) handle(state State, res Result[T]) *vdom.VNode {
	if state == Resolved && res.Err != nil {
		return h.fn(res.Err)
	}
	return nil
}

type readyHandler[T any] struct {
	fn func(T) *vdom.VNode
}

func (h readyHandler[T]) handle(state State, res Result[T]) *vdom.VNode {
	if state == Resolved && res.Err == nil {
		return h.fn(res.Value)
	}
	return nil
}

// OnPending handles the Unresolved and Pending states.
func OnPending[T any](fn func() *vdom.VNode) Handler[T] {
	return pendingHandler[T]{fn: fn}
}

// OnError handles a resolved resource whose fetch failed.
func OnError[T any](fn func(error) *vdom.VNode) Handler[T] {
	return errorHandler[T]{fn: fn}
}

// OnReady handles a resolved resource whose fetch succeeded.
func OnReady[T any](fn func(T) *vdom.VNode) Handler[T] {
	return readyHandler[T]{fn: fn}
}
