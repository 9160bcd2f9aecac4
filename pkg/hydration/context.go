package hydration

// Context allocates keys in traversal order.
// It is used by a single render pass and is not safe for concurrent use.
type Context struct {
	fragment string
	next     int

	// minted records every allocated key when recording is enabled.
	minted    []Key
	recording bool
}

// NewContext returns a Context positioned at the start of the root fragment.
func NewContext() *Context {
	return &Context{fragment: RootFragment}
}

// Next allocates and returns the next key.
func (c *Context) Next() Key {
	k := Key{Fragment: c.fragment, ID: c.next}
	c.next++
	if c.recording {
		c.minted = append(c.minted, k)
	}
	return k
}

// Peek returns the key Next would allocate without advancing.
func (c *Context) Peek() Key {
	return Key{Fragment: c.fragment, ID: c.next}
}

// ContinueFrom moves the cursor so the next key follows k in k's fragment.
func (c *Context) ContinueFrom(k Key) {
	c.fragment = k.Fragment
	c.next = k.ID + 1
}

// Enter moves the cursor to the start of fragment.
func (c *Context) Enter(fragment string) {
	c.fragment = fragment
	c.next = 0
}

// Reset moves the cursor back to the start of the root fragment and drops
// any recorded keys.
func (c *Context) Reset() {
	c.fragment = RootFragment
	c.next = 0
	c.minted = nil
}

// Record turns recording of allocated keys on or off.
func (c *Context) Record(on bool) {
	c.recording = on
}

// Minted returns the keys allocated while recording was on.
func (c *Context) Minted() []Key {
	out := make([]Key, len(c.minted))
	copy(out, c.minted)
	return out
}
