// Package suspense tracks how many resources are still pending beneath a
// point in the view tree.
//
// A Context is created per suspense boundary and installed as the ambient
// context of the boundary's owner. Resources created or read while it is
// ambient register with it: TrackPending when a fetch starts and
// TrackResolved when the fetch settles. The boundary is ready once the count
// returns to zero.
//
//	sc := suspense.New()
//	suspense.ProvideOn(owner, sc)
//
//	reactive.CreateEffect(func() reactive.Cleanup {
//	    if sc.Ready() {
//	        // swap fallback for children
//	    }
//	    return nil
//	})
//
// Mutations are safe from any goroutine, including after the boundary's
// render returned. After Dispose both mutators are no-ops, so a fetch that
// settles after its boundary was torn down is silently absorbed.
package suspense
