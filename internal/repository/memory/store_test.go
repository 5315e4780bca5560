package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, repo booking.InventoryRepository) error {
		require.NoError(t, repo.CreateHold(ctx, &model.Hold{TripID: 1, SeatNumber: "1A", Status: model.HoldActive, ExpiresAt: now}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.HoldCount())

	err = s.WithinTx(ctx, func(ctx context.Context, repo booking.InventoryRepository) error {
		return repo.CreateHold(ctx, &model.Hold{TripID: 1, SeatNumber: "1A", Status: model.HoldActive, ExpiresAt: now})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.HoldCount())
}

func TestLookupsWrapNoRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetTrip(ctx, 99)
	assert.ErrorIs(t, err, booking.ErrNoRecord)
	_, err = s.GetStop(ctx, 99)
	assert.ErrorIs(t, err, booking.ErrNoRecord)
	_, err = s.GetSeat(ctx, 1, "1A")
	assert.ErrorIs(t, err, booking.ErrNoRecord)
}

func TestActiveHoldQueriesFilterByTime(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	live := s.PutHold(model.Hold{TripID: 1, SeatNumber: "1A", HolderID: 7, FromOrder: 0, ToOrder: 2, Status: model.HoldActive, ExpiresAt: now.Add(time.Minute)})
	s.PutHold(model.Hold{TripID: 1, SeatNumber: "1B", HolderID: 7, FromOrder: 0, ToOrder: 2, Status: model.HoldActive, ExpiresAt: now.Add(-time.Second)})

	byHolder, err := s.FindActiveHoldsByTripAndHolder(ctx, 1, 7, now)
	require.NoError(t, err)
	require.Len(t, byHolder, 1)
	assert.Equal(t, live.ID, byHolder[0].ID)

	byTrip, err := s.FindActiveHoldsByTrip(ctx, 1, now)
	require.NoError(t, err)
	assert.Len(t, byTrip, 1)

	expired, err := s.FindExpiredHolds(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	ok, err := s.ExpireHold(ctx, expired[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ExpireHold(ctx, expired[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	purged, err := s.DeleteExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Equal(t, 1, s.HoldCount())
}

func TestListStopsSortedByOrder(t *testing.T) {
	s := New()
	r, _ := s.AddRoute("north", "A", "B", "C")
	stops, err := s.ListStops(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, stops, 3)
	for i, st := range stops {
		assert.Equal(t, i, st.Order)
	}
}
