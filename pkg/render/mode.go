package render

import (
	"strings"

	"github.com/vango-dev/suspense/internal/errors"
)

// Mode selects the driver a document is rendered with.
type Mode int

const (
	ModeClient     Mode = iota // live view patches
	ModeSinglePass             // one string, fallbacks for pending boundaries
	ModeOutOfOrder             // shell first, boundaries as they resolve
	ModeInOrder                // document order, blocking at boundaries
)

func (m Mode) String() string {
	switch m {
	case ModeClient:
		return "client"
	case ModeSinglePass:
		return "ssr"
	case ModeOutOfOrder:
		return "ooo"
	case ModeInOrder:
		return "inorder"
	default:
		return "unknown"
	}
}

// Streaming reports whether the mode sends its output in several chunks.
func (m Mode) Streaming() bool {
	return m == ModeOutOfOrder || m == ModeInOrder
}

// ParseMode parses a mode name as returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return ModeClient, nil
	case "ssr", "single", "singlepass":
		return ModeSinglePass, nil
	case "ooo", "outoforder", "out-of-order":
		return ModeOutOfOrder, nil
	case "inorder", "in-order":
		return ModeInOrder, nil
	}
	return 0, errors.New("E123").WithDetailf("unknown mode %q", s)
}
