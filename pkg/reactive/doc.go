// Package reactive provides the reactive graph the rendering engine is built on.
//
// Dependencies are tracked automatically at runtime: reading a signal while a
// listener (memo, effect) is running subscribes that listener to the signal.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	count := NewSignal(0)
//	value := count.Get()  // Read (subscribes current listener)
//	count.Set(5)          // Write (marks subscribers dirty)
//
// Memo[T] is a cached derived computation:
//
//	doubled := NewMemo(func() int { return count.Get() * 2 })
//
// Effect runs side effects when dependencies change. Re-runs are scheduled
// on the effect's Owner and executed by Owner.RunPendingEffects:
//
//	CreateEffect(func() Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return nil
//	})
//
// # Owners
//
// An Owner is a disposal scope. Signals, effects, cleanups and context values
// created while an Owner is current belong to it, and Dispose tears all of
// them down. Owners also hold hook slots, which give primitives created during
// a render a stable identity across re-renders of the same scope.
//
// # Thread Safety
//
// All primitives are safe for concurrent use. The tracking context (current
// owner and listener) is per goroutine, so work spawned on another goroutine
// must re-establish it with WithOwner.
package reactive
