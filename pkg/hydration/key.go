package hydration

import (
	"fmt"
	"strconv"
	"strings"
)

// RootFragment names the fragment of the document root.
const RootFragment = "0"

// Key identifies one node within the view tree.
type Key struct {
	Fragment string
	ID       int
}

// String renders the key as "<fragment>-<id>".
func (k Key) String() string {
	return k.Fragment + "-" + strconv.Itoa(k.ID)
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.Fragment == "" && k.ID == 0
}

// Subtree returns the fragment used for the children of the boundary k.
func (k Key) Subtree() string {
	return k.String()
}

// FallbackSubtree returns the fragment used for the fallback of the
// boundary k.
func (k Key) FallbackSubtree() string {
	return k.String() + "f"
}

// ParseKey parses the "<fragment>-<id>" form produced by Key.String.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 || s[i-1] == '-' {
		return Key{}, fmt.Errorf("hydration: malformed key %q", s)
	}
	id, err := strconv.Atoi(s[i+1:])
	if err != nil || id < 0 {
		return Key{}, fmt.Errorf("hydration: malformed key %q", s)
	}
	return Key{Fragment: s[:i], ID: id}, nil
}

// Boundary returns the key of the suspense boundary whose subtree contains
// k, and false when k belongs to the root fragment.
func (k Key) Boundary() (Key, bool) {
	if k.Fragment == RootFragment || k.Fragment == "" {
		return Key{}, false
	}
	b, err := ParseKey(strings.TrimSuffix(k.Fragment, "f"))
	if err != nil {
		return Key{}, false
	}
	return b, true
}

// InFallback reports whether k was minted inside a boundary's fallback.
func (k Key) InFallback() bool {
	return strings.HasSuffix(k.Fragment, "f")
}
