package resource

import "github.com/vango-dev/suspense/pkg/reactive"

var ambientDispatcher = reactive.CreateContext[Dispatcher](nil)

// ProvideDispatcher makes d the dispatcher for resources created beneath
// owner.
func ProvideDispatcher(owner *reactive.Owner, d Dispatcher) {
	ambientDispatcher.ProvideOn(owner, d)
}

func currentDispatcher() Dispatcher {
	d, _ := ambientDispatcher.Lookup()
	return d
}
