package vdom

import "testing"

func TestSuspenseNode(t *testing.T) {
	fallbackCalls, childCalls := 0, 0
	node := Suspense(
		func() *VNode { fallbackCalls++; return Text("loading") },
		func() *VNode { childCalls++; return Text("ready") },
	)

	if !node.IsSuspense() {
		t.Fatal("expected suspense node")
	}
	if fallbackCalls != 0 || childCalls != 0 {
		t.Error("closures must not run at construction")
	}

	if got := node.Boundary.RenderFallback().Text; got != "loading" {
		t.Errorf("fallback = %q", got)
	}
	if got := node.Boundary.RenderChildren().Text; got != "ready" {
		t.Errorf("children = %q", got)
	}
}

func TestSuspenseNilClosures(t *testing.T) {
	node := Suspense(nil, nil)
	if node.Boundary.RenderFallback() != nil {
		t.Error("nil fallback should render nothing")
	}
	if node.Boundary.RenderChildren() != nil {
		t.Error("nil children should render nothing")
	}
	if Text("x").IsSuspense() {
		t.Error("text node is not a boundary")
	}
}

func TestCountBoundaries(t *testing.T) {
	tree := Div(
		Suspense(nil, func() *VNode { return Suspense(nil, nil) }),
		Fragment(Suspense(nil, nil), "text"),
	)

	if got := CountBoundaries(tree); got != 2 {
		t.Errorf("CountBoundaries() = %d, want 2 (closures are not evaluated)", got)
	}
}

func TestFindByHK(t *testing.T) {
	target := Span()
	target.HK = "0-1-0"
	tree := Div(P(), target)
	tree.HK = "0-0"

	if FindByHK(tree, "0-1-0") != target {
		t.Error("expected to find target")
	}
	if FindByHK(tree, "9-9") != nil {
		t.Error("unexpected match")
	}
	if len(CollectHKs(tree)) != 2 {
		t.Errorf("CollectHKs() = %d entries, want 2", len(CollectHKs(tree)))
	}
}
