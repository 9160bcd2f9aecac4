package reactive

import "sync/atomic"

var globalIDCounter atomic.Uint64

// nextID returns the next unique ID for a reactive primitive.
func nextID() uint64 {
	return globalIDCounter.Add(1)
}
