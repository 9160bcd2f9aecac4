package demo

import (
	"context"
	"strconv"
	"sync"

	"github.com/vango-dev/suspense/pkg/live"
	"github.com/vango-dev/suspense/pkg/reactive"
	"github.com/vango-dev/suspense/pkg/resource"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// CounterSession is one client's interactive counter. Its view re-renders
// when the server count changes, from this client or any other.
type CounterSession struct {
	app   *App
	count *reactive.Signal[int]
	sub   *live.Subscription[int]
	once  sync.Once
}

// NewCounterSession subscribes a new session to the count.
func (a *App) NewCounterSession() *CounterSession {
	return &CounterSession{
		app:   a,
		count: reactive.NewSignal(a.count.Current()),
		sub:   a.count.Subscribe(),
	}
}

// View is the live counter. Each count change refetches the displayed
// value, so the boundary shows its fallback again until the fetch settles.
func (s *CounterSession) View() *vdom.VNode {
	return vdom.Main(
		vdom.H1("Live Counter"),
		vdom.Section(vdom.Class("card"),
			vdom.Suspense(
				loading("Loading count..."),
				func() *vdom.VNode {
					r := resource.New(s.count.Get, func(ctx context.Context, n int) (int, error) {
						if err := s.app.wait(ctx); err != nil {
							return 0, err
						}
						return n, nil
					}, resource.WithName("live-count"))

					return r.Match(
						resource.OnError[int](errorText),
						resource.OnReady(func(n int) *vdom.VNode {
							return vdom.Div(
								vdom.Button(vdom.OnClick(func() { s.adjust(-1) }), "-1"),
								vdom.Span(vdom.Class("count"), "Value: "+strconv.Itoa(n)),
								vdom.Button(vdom.OnClick(func() { s.adjust(1) }), "+1"),
								vdom.Button(vdom.OnClick(s.clear), "Clear"),
							)
						}),
						resource.OnPending[int](func() *vdom.VNode { return vdom.P("...") }),
					)
				},
			),
		),
	)
}

// Attach forwards count changes to d, which applies them on the view's
// goroutine. It returns immediately.
func (s *CounterSession) Attach(d resource.Dispatcher) {
	go func() {
		for v := range s.sub.C {
			d.Dispatch(func() { s.count.Set(v) })
		}
	}()
}

// Close unsubscribes the session.
func (s *CounterSession) Close() {
	s.once.Do(s.sub.Close)
}

func (s *CounterSession) adjust(delta int) {
	s.app.AdjustServerCount(context.Background(), AdjustArgs{Delta: delta, Msg: "live session " + s.sub.ID})
}

func (s *CounterSession) clear() {
	s.app.ClearServerCount(context.Background(), struct{}{})
}
