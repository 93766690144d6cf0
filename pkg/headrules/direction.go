package headrules

import (
	"errors"
	"fmt"
)

// ErrUnknownDirection is returned by ParseDirection for unrecognized names.
var ErrUnknownDirection = errors.New("unknown direction")

// Direction selects the order in which a rule scans candidate children.
type Direction uint8

const (
	// HeadInitial scans children left to right.
	HeadInitial Direction = iota
	// HeadFinal scans children right to left.
	HeadFinal
)

// String returns "head-initial" or "head-final".
func (d Direction) String() string {
	if d == HeadFinal {
		return "head-final"
	}

	return "head-initial"
}

// ParseDirection accepts the names produced by String.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "head-initial":
		return HeadInitial, nil
	case "head-final":
		return HeadFinal, nil
	default:
		return HeadInitial, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// at maps the pos-th position of the scan to an index into a slice of n.
func (d Direction) at(pos, n int) int {
	if d == HeadFinal {
		return n - 1 - pos
	}

	return pos
}

// scan returns the index of the first element, in scan order, that
// satisfies pred.
func (d Direction) scan(n int, pred func(idx int) bool) (int, bool) {
	for pos := range n {
		idx := d.at(pos, n)
		if pred(idx) {
			return idx, true
		}
	}

	return -1, false
}

// last returns the index of the final element in scan order.
func (d Direction) last(n int) int {
	return d.at(n-1, n)
}
