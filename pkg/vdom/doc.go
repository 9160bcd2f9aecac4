// Package vdom describes views as trees of VNodes.
//
// A view is a pure description: building it has no side effects, and the
// render package turns it into markup or a live view. Besides elements,
// text, fragments and components, a tree may contain suspense boundaries
// built with Suspense. A boundary holds closures for its fallback and its
// children rather than built subtrees, so the renderer decides when and how
// often each is evaluated.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    Suspense(
//	        func() *VNode { return P(Text("Loading...")) },
//	        func() *VNode { return P(Text(user.Get().Name)) },
//	    ),
//	)
//
// # Hydration keys
//
// Every element and boundary receives a hydration key (HK) from the render
// pass that visits it. Keys are written to markup as data-hk and let a
// client replay the same view against server markup.
package vdom
