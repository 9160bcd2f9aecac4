// Package hydration mints the structural identifiers that link server
// markup to the client's reconstruction of the same view.
//
// Keys are allocated in tree traversal order by a Context. A suspense
// boundary takes one key from its enclosing fragment and numbers everything
// beneath it in a fragment of its own, so the keys of a subtree do not
// depend on how many nodes the subtree renders:
//
//	0-0          <div>
//	0-1          <Suspense>
//	  0-1-0        children of 0-1
//	  0-1f-0       fallback of 0-1
//	0-2          sibling after the boundary
//
// Extract recovers the key sequence from rendered markup and Compare finds
// the first place two sequences diverge.
package hydration
