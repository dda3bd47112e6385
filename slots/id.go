// Package slots implements fixed 256-entry dispatch tables.
//
// A host runtime that resolves behavior by small integer slot rather than by
// name looks up entry N in one of the tables and invokes it. Every entry is a
// trampoline: it carries its own slot ID and forwards the call, unchanged, to
// the single shared handler of its table. The package never interprets IDs.
package slots

import (
	"errors"
	"fmt"
	"strconv"
)

// Count is the number of entries in every dispatch table.
const Count = 256

// ID identifies one entry in a dispatch table.
//
// Historically an ID is written as two hex digits, the high and low nibble,
// e.g. slot 0x2a is high nibble 2 and low nibble a.
type ID uint8

// ErrSlotRange is returned when an integer does not name a slot.
var ErrSlotRange = errors.New("slot index out of range")

// FromNibbles reconstitutes an ID from its two 4-bit halves.
func FromNibbles(high, low uint8) ID {
	return ID((high&0xF)*16 + low&0xF)
}

// High returns the upper nibble of the ID.
func (id ID) High() uint8 { return uint8(id) >> 4 }

// Low returns the lower nibble of the ID.
func (id ID) Low() uint8 { return uint8(id) & 0xF }

func (id ID) String() string {
	return "0x" + strconv.FormatUint(uint64(id.High()), 16) + strconv.FormatUint(uint64(id.Low()), 16)
}

// CheckedID converts an int index to an ID, rejecting anything outside 0..255.
// Hosts that address slots with wider integers call this at their boundary.
func CheckedID(i int) (ID, error) {
	if i < 0 || i >= Count {
		return 0, fmt.Errorf("%w: %d", ErrSlotRange, i)
	}
	return ID(i), nil
}

// ParseID parses a slot ID written in decimal or with a 0x prefix.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("slot %q: %w", s, err)
	}
	if n >= Count {
		return 0, fmt.Errorf("%w: %s", ErrSlotRange, s)
	}
	return ID(n), nil
}
