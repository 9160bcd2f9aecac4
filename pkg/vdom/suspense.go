package vdom

// SuspenseNode is the payload of a KindSuspense node.
type SuspenseNode struct {
	// Fallback builds the view shown while resources beneath the boundary
	// are pending. It may be nil.
	Fallback func() *VNode

	// Children builds the boundary's content. It must be safe to call while
	// the resources it reads are not yet available.
	Children func() *VNode
}

// Suspense creates a suspense boundary. Resources read while children runs
// register with the boundary; the boundary shows fallback until all of them
// have resolved.
func Suspense(fallback, children func() *VNode) *VNode {
	return &VNode{
		Kind: KindSuspense,
		Boundary: &SuspenseNode{
			Fallback: fallback,
			Children: children,
		},
	}
}

// IsSuspense reports whether v is a suspense boundary.
func (v *VNode) IsSuspense() bool {
	return v != nil && v.Kind == KindSuspense && v.Boundary != nil
}

// RenderFallback evaluates the boundary's fallback, returning nil when it
// has none.
func (s *SuspenseNode) RenderFallback() *VNode {
	if s == nil || s.Fallback == nil {
		return nil
	}
	return s.Fallback()
}

// RenderChildren evaluates the boundary's children.
func (s *SuspenseNode) RenderChildren() *VNode {
	if s == nil || s.Children == nil {
		return nil
	}
	return s.Children()
}
