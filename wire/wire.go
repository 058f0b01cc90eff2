// Package wire carries idl values between the client proxy and the
// remote actor.
//
// A Message is a flat, pre-order arena of typed nodes plus the indices
// of its top-level values. Children always sit after their parent, so a
// message can be walked without recursion guards. Messages are plain
// structs with cramberry tags and are serialized deterministically.
//
// Decoding is always driven by the declared types: the payload is
// self-describing enough to detect disagreement, but it is never trusted
// to define the shape of a value.
package wire

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// Node is one value in a Message.
//
// Text nodes use Text, Nat nodes use Nat (big-endian magnitude, empty
// for zero), Nat64 nodes use Nat64. Opt nodes have zero or one child,
// Vec nodes any number. Record nodes pair Labels[i] with Children[i];
// Variant nodes carry exactly one label and one child.
type Node struct {
	Kind     uint32   `cramberry:"1"`
	Text     string   `cramberry:"2"`
	Nat      []byte   `cramberry:"3"`
	Nat64    uint64   `cramberry:"4"`
	Labels   []string `cramberry:"5"`
	Children []uint32 `cramberry:"6"`
}

// Message is an encoded argument or result tuple.
type Message struct {
	Nodes []Node   `cramberry:"1"`
	Roots []uint32 `cramberry:"2"`
}

// Len is the number of top-level values.
func (m *Message) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Roots)
}

// Marshal serializes a message.
func Marshal(m *Message) ([]byte, error) {
	if m == nil {
		m = &Message{}
	}
	data, err := cramberry.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("cramberry marshal: %w", err)
	}
	return data, nil
}

// Unmarshal parses a serialized message. It only checks framing; the
// structure is validated by Decode.
func Unmarshal(data []byte) (*Message, error) {
	m := new(Message)
	if err := cramberry.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("cramberry unmarshal: %w", err)
	}
	return m, nil
}
