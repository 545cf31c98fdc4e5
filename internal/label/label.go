package label

import (
	"fmt"
	"strconv"
	"strings"
)

// Label identifies a position set plus one opaque boolean attribute.
//
// Bits 27..0 hold the node id. Bits 31..28 are all set when the extended
// attribute is true and all clear otherwise. The attribute is propagated by
// Union through logical OR and carries no other meaning here.
type Label uint32

const (
	// IDMask selects the node id bits of a Label.
	IDMask Label = 0x0FFFFFFF

	// ExtendedBits is the attribute nibble.
	ExtendedBits Label = 0xF0000000

	// Empty denotes the empty set. It is also returned whenever the arena
	// is at capacity.
	Empty Label = 0

	// MaxCapacity is the largest arena size a node id can address.
	MaxCapacity = 1<<28 - 1
)

// ID returns the node id of l.
func (l Label) ID() uint32 {
	return uint32(l & IDMask)
}

// Extended reports whether the attribute nibble is set.
func (l Label) Extended() bool {
	return l&ExtendedBits == ExtendedBits
}

// WithExtended returns l with the attribute nibble set.
func (l Label) WithExtended() Label {
	return l | ExtendedBits
}

// IsEmpty reports whether l names the empty set.
func (l Label) IsEmpty() bool {
	return l.ID() == root
}

func (l Label) String() string {
	if l.Extended() {
		return fmt.Sprintf("%d+ext", l.ID())
	}
	return fmt.Sprintf("%d", l.ID())
}

// Parse reads a label in the form produced by String ("12", "12+ext") or
// as a raw 32-bit integer ("0xF000000C", "4026531852").
func Parse(s string) (Label, error) {
	ext := false
	if trimmed, ok := strings.CutSuffix(s, "+ext"); ok {
		s, ext = trimmed, true
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return Empty, fmt.Errorf("parse label %q: %w", s, err)
	}
	l := Label(v)
	if ext {
		if l&ExtendedBits != 0 {
			return Empty, fmt.Errorf("parse label %q: id out of range", s)
		}
		l = l.WithExtended()
	}
	return l, nil
}
