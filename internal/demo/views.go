package demo

import (
	"context"
	"strconv"

	"github.com/vango-dev/suspense/pkg/resource"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// Home is the suspense page: a boundary around the server count with a
// nested boundary inside it, and a boundary whose resource fails.
func (a *App) Home() *vdom.VNode {
	return vdom.Main(
		vdom.H1("Suspense"),
		vdom.Section(vdom.Class("card"),
			vdom.H2("Server count"),
			vdom.Suspense(
				loading("Loading count..."),
				func() *vdom.VNode {
					count := a.countResource("home-count")
					return count.Match(
						resource.OnError[int](errorText),
						resource.OnReady(func(n int) *vdom.VNode {
							return vdom.Div(
								vdom.P("The server count is ", vdom.Strong(strconv.Itoa(n)), "."),
								vdom.Suspense(
									loading("Working out parity..."),
									func() *vdom.VNode { return a.parity(n) },
								),
							)
						}),
						resource.OnPending[int](func() *vdom.VNode { return vdom.P("...") }),
					)
				},
			),
		),
		vdom.Section(vdom.Class("card"),
			vdom.H2("Forecast"),
			vdom.Suspense(
				loading("Checking the forecast..."),
				func() *vdom.VNode {
					r := resource.NewUnkeyed(a.Forecast, resource.WithName("forecast"))
					return r.Match(
						resource.OnError[string](errorText),
						resource.OnReady(func(s string) *vdom.VNode { return vdom.P(s) }),
						resource.OnPending[string](func() *vdom.VNode { return vdom.P("...") }),
					)
				},
			),
		),
		vdom.Footer(vdom.A(vdom.Href("/counter"), "Counter")),
	)
}

// Counter renders the count with buttons that post to the server
// functions, so it works without a client bundle.
func (a *App) Counter() *vdom.VNode {
	return vdom.Main(
		vdom.H1("Isomorphic Counter"),
		vdom.Section(vdom.Class("card"),
			vdom.Suspense(
				loading("Loading count..."),
				func() *vdom.VNode {
					count := a.countResource("counter-count")
					return count.Match(
						resource.OnError[int](errorText),
						resource.OnReady(func(n int) *vdom.VNode {
							return vdom.Div(
								postButton("adjust_server_count", -1, "-1"),
								vdom.Span(vdom.Class("count"), "Value: "+strconv.Itoa(n)),
								postButton("adjust_server_count", 1, "+1"),
								postButton("clear_server_count", 0, "Clear"),
							)
						}),
						resource.OnPending[int](func() *vdom.VNode { return vdom.P("...") }),
					)
				},
			),
		),
		vdom.P("Live updates arrive on ", vdom.Code("/api/events"), "."),
		vdom.Footer(vdom.A(vdom.Href("/"), "Home")),
	)
}

func (a *App) countResource(name string) *resource.Resource[struct{}, int] {
	return resource.NewUnkeyed(func(ctx context.Context) (int, error) {
		return a.GetServerCount(ctx, struct{}{})
	}, resource.WithName(name))
}

// parity resolves after a second wait, so its boundary shows its own
// fallback after the outer one has resolved.
func (a *App) parity(n int) *vdom.VNode {
	r := resource.New(func() int { return n }, func(ctx context.Context, n int) (string, error) {
		if err := a.wait(ctx); err != nil {
			return "", err
		}
		if n%2 == 0 {
			return "even", nil
		}
		return "odd", nil
	}, resource.WithName("parity"))

	res, ok := r.Read()
	switch {
	case !ok:
		return vdom.P("...")
	case res.Err != nil:
		return errorText(res.Err)
	default:
		return vdom.P(vdom.Class("parity"), "It is ", res.Value, ".")
	}
}

func postButton(fn string, delta int, label string) *vdom.VNode {
	return vdom.Form(vdom.Method("post"), vdom.Action("/api/"+fn),
		vdom.Input(vdom.Type("hidden"), vdom.Name("delta"), vdom.Value(delta)),
		vdom.Button(vdom.Type("submit"), label),
	)
}

func loading(text string) func() *vdom.VNode {
	return func() *vdom.VNode {
		return vdom.P(vdom.Class("loading"), vdom.AriaBusy(true), text)
	}
}

func errorText(err error) *vdom.VNode {
	return vdom.P(vdom.Class("error"), vdom.Role("alert"), "error: "+err.Error())
}
