package hydration

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Attr is the attribute that carries a node's key in rendered markup.
const Attr = "data-hk"

// Boundary comment markers wrap each suspense boundary in server markup.
const (
	openMarker  = "s:"
	closeMarker = "/s:"
)

// OpenMarker returns the comment text that opens boundary k.
func OpenMarker(k Key) string { return openMarker + k.String() }

// CloseMarker returns the comment text that closes boundary k.
func CloseMarker(k Key) string { return closeMarker + k.String() }

// Extract tokenizes markup and returns, in document order, the keys of
// elements carrying the key attribute and of boundary open markers.
// Content of <template> elements is skipped so resolved out-of-order chunks
// don't contribute their keys twice.
func Extract(r io.Reader) ([]Key, error) {
	z := html.NewTokenizer(r)

	var keys []Key
	templateDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("hydration: tokenize: %w", err)
			}
			return keys, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data == "template" {
				templateDepth++
				continue
			}
			if templateDepth > 0 {
				continue
			}
			for _, a := range tok.Attr {
				if a.Key != Attr {
					continue
				}
				k, err := ParseKey(a.Val)
				if err != nil {
					return nil, err
				}
				keys = append(keys, k)
			}

		case html.EndTagToken:
			if tok := z.Token(); tok.Data == "template" && templateDepth > 0 {
				templateDepth--
			}

		case html.CommentToken:
			if templateDepth > 0 {
				continue
			}
			text := string(z.Text())
			if !strings.HasPrefix(text, openMarker) {
				continue
			}
			k, err := ParseKey(strings.TrimPrefix(text, openMarker))
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
	}
}

// ExtractString is Extract over a string.
func ExtractString(markup string) ([]Key, error) {
	return Extract(strings.NewReader(markup))
}

// Mismatch describes the first point where two key sequences diverge.
type Mismatch struct {
	// Index is the position in the sequences.
	Index int

	// Server and Client hold the keys at Index. A zero Key means that side
	// ended early.
	Server Key
	Client Key
}

// Boundary returns the innermost boundary enclosing the mismatch, or false
// when the mismatch is in the root fragment.
func (m *Mismatch) Boundary() (Key, bool) {
	k := m.Client
	if k.IsZero() {
		k = m.Server
	}
	return k.Boundary()
}

func (m *Mismatch) String() string {
	return fmt.Sprintf("key %d: server %q, client %q", m.Index, display(m.Server), display(m.Client))
}

func display(k Key) string {
	if k.IsZero() {
		return "<none>"
	}
	return k.String()
}

// Compare returns the first divergence between server and client, or nil
// when the sequences are identical.
func Compare(server, client []Key) *Mismatch {
	n := len(server)
	if len(client) > n {
		n = len(client)
	}
	for i := 0; i < n; i++ {
		var s, c Key
		if i < len(server) {
			s = server[i]
		}
		if i < len(client) {
			c = client[i]
		}
		if s != c {
			return &Mismatch{Index: i, Server: s, Client: c}
		}
	}
	return nil
}
