package reactive

// Listener is anything that can be notified when a dependency changes.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has changed.
	// For memos this invalidates the cached value; for effects it schedules a
	// re-run on the owning scope.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication during batch processing.
	ID() uint64
}

// Cleanup is a function returned by effects to clean up resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// sourceTracker is implemented by listeners that remember what they read so
// they can unsubscribe on re-run or disposal.
type sourceTracker interface {
	Listener
	addSource(source *signalBase)
}
