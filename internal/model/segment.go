package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSegment is returned by NewSegment when from is not strictly
// before to or an order is negative.
var ErrInvalidSegment = errors.New("invalid segment")

// Segment is the half-open interval [From, To) of stop orders covered by a
// ticket or a hold.  A passenger boarding at order 0 and leaving at order 2
// occupies the seat on legs 0→1 and 1→2, so a second passenger may board the
// same seat at order 2.
type Segment struct {
	From int
	To   int
}

// NewSegment builds a validated segment.
func NewSegment(from, to int) (Segment, error) {
	if from < 0 || to < 0 || from >= to {
		return Segment{}, fmt.Errorf("%w: [%d,%d)", ErrInvalidSegment, from, to)
	}
	return Segment{From: from, To: to}, nil
}

// Overlaps reports whether the two segments share at least one leg.
// Boundary-adjacent segments ([0,2) and [2,4)) do not overlap.
func (s Segment) Overlaps(o Segment) bool {
	return s.From < o.To && s.To > o.From
}

// Legs returns the number of legs covered by the segment.
func (s Segment) Legs() int { return s.To - s.From }

func (s Segment) String() string { return fmt.Sprintf("[%d,%d)", s.From, s.To) }
