package vdom

// FindByHK finds a node by its hydration key in a rendered tree.
// A rendered boundary keeps the subtree it currently shows in Children.
func FindByHK(node *VNode, hk string) *VNode {
	if node == nil {
		return nil
	}

	if node.HK == hk {
		return node
	}

	for _, child := range node.Children {
		if found := FindByHK(child, hk); found != nil {
			return found
		}
	}

	return nil
}

// CollectHKs returns a map of hydration key to node for all keyed nodes.
func CollectHKs(node *VNode) map[string]*VNode {
	result := make(map[string]*VNode)
	collectHKs(node, result)
	return result
}

func collectHKs(node *VNode, result map[string]*VNode) {
	if node == nil {
		return
	}

	if node.HK != "" {
		result[node.HK] = node
	}

	for _, child := range node.Children {
		collectHKs(child, result)
	}
}

// CountBoundaries returns the number of suspense boundaries reachable
// without evaluating any closures.
func CountBoundaries(node *VNode) int {
	if node == nil {
		return 0
	}

	count := 0
	if node.IsSuspense() {
		count = 1
	}
	for _, child := range node.Children {
		count += CountBoundaries(child)
	}
	return count
}
