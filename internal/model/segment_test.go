package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSegment(t *testing.T) {
	seg, err := NewSegment(0, 2)
	require.NoError(t, err)
	assert.Equal(t, Segment{From: 0, To: 2}, seg)
	assert.Equal(t, 2, seg.Legs())

	for _, bad := range [][2]int{{2, 2}, {3, 1}, {-1, 2}} {
		_, err := NewSegment(bad[0], bad[1])
		assert.ErrorIs(t, err, ErrInvalidSegment, "segment %v", bad)
	}
}

func TestSegmentOverlaps(t *testing.T) {
	sold := Segment{From: 0, To: 2}

	assert.True(t, sold.Overlaps(Segment{From: 1, To: 3}))
	assert.True(t, sold.Overlaps(Segment{From: 0, To: 1}))
	assert.True(t, sold.Overlaps(Segment{From: 0, To: 4}))
	assert.False(t, sold.Overlaps(Segment{From: 2, To: 3}), "adjacent after")
	assert.False(t, Segment{From: 2, To: 4}.Overlaps(sold), "adjacent before")
	assert.False(t, sold.Overlaps(Segment{From: 3, To: 4}))
}

func TestTripStatusTransitions(t *testing.T) {
	assert.True(t, TripScheduled.CanTransition(TripBoarding))
	assert.True(t, TripScheduled.CanTransition(TripCancelled))
	assert.False(t, TripScheduled.CanTransition(TripDeparted))
	assert.True(t, TripBoarding.CanTransition(TripDeparted))
	assert.True(t, TripDeparted.CanTransition(TripArrived))
	assert.False(t, TripDeparted.CanTransition(TripBoarding))
	assert.False(t, TripArrived.CanTransition(TripCancelled))
	assert.False(t, TripCancelled.CanTransition(TripScheduled))

	assert.True(t, TripArrived.Terminal())
	assert.True(t, TripCancelled.Terminal())
	assert.False(t, TripDeparted.Terminal())
	assert.True(t, TripBoarding.Sellable())
	assert.False(t, TripDeparted.Sellable())
}
