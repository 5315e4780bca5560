package booking_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository/memory"
)

func TestCreateHoldRejectsOverlappingSegments(t *testing.T) {
	f := newFixture(t)

	first, err := f.hold(1, "1A", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, model.HoldActive, first.Status)
	assert.Equal(t, t0.Add(10*time.Minute), first.ExpiresAt)
	assert.Equal(t, model.Segment{From: 0, To: 2}, first.Segment())

	_, err = f.hold(2, "1A", 1, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrConflict)
	failures := booking.FailuresOf(err)
	require.Len(t, failures, 1)
	assert.Equal(t, "1A", failures[0].SeatNumber)
	assert.Equal(t, "held by another checkout", failures[0].Reason)

	// Adjacent segments share only a boundary stop.
	_, err = f.hold(2, "1A", 2, 4)
	require.NoError(t, err)

	_, err = f.hold(2, "1B", 1, 3)
	require.NoError(t, err)
}

func TestCreateHoldRejectsSoldOverlap(t *testing.T) {
	f := newFixture(t)
	f.sold("2A", 1, 3)

	_, err := f.hold(1, "2A", 0, 2)
	require.Error(t, err)
	assert.Equal(t, booking.KindConflict, booking.KindOf(err))
	assert.Equal(t, "already sold", booking.FailuresOf(err)[0].Reason)

	_, err = f.hold(1, "2A", 3, 4)
	assert.NoError(t, err)
}

func TestCreateHoldValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.hold(1, "1A", 2, 2)
	assert.ErrorIs(t, err, booking.ErrInvalidArgument)

	_, err = f.hold(1, "1A", 3, 1)
	assert.ErrorIs(t, err, booking.ErrInvalidArgument)

	_, err = f.hold(1, "9Z", 0, 1)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.hold(1, "  ", 0, 1)
	assert.ErrorIs(t, err, booking.ErrInvalidArgument)

	_, err = f.engine.Coordinator.CreateHold(ctx, booking.HoldRequest{TripID: 404, SeatNumber: "1A", HolderID: 1, FromStopID: f.stop(0), ToStopID: f.stop(1)})
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.engine.Coordinator.CreateHold(ctx, booking.HoldRequest{TripID: f.trip.ID, SeatNumber: "1A", HolderID: 1, FromStopID: 404, ToStopID: f.stop(1)})
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, other := f.store.AddRoute("inland", "X", "Y")
	_, err = f.engine.Coordinator.CreateHold(ctx, booking.HoldRequest{TripID: f.trip.ID, SeatNumber: "1A", HolderID: 1, FromStopID: other[0].ID, ToStopID: other[1].ID})
	assert.ErrorIs(t, err, booking.ErrInvalidArgument)

	assert.Equal(t, 0, f.store.HoldCount())
}

func TestCreateHoldRequiresTTL(t *testing.T) {
	f := newFixture(t)
	delete(f.config, booking.SettingHoldTTL)

	_, err := f.hold(1, "1A", 0, 1)
	assert.ErrorIs(t, err, booking.ErrInvalidArgument)

	f.config[booking.SettingHoldTTL] = "0"
	_, err = f.hold(1, "1A", 0, 1)
	assert.ErrorIs(t, err, booking.ErrInvalidArgument)
	assert.Equal(t, 0, f.store.HoldCount())
}

func TestCreateHoldOnClosedTrip(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Capacity.Transition(context.Background(), f.trip.ID, model.TripCancelled)
	require.NoError(t, err)

	_, err = f.hold(1, "1A", 0, 1)
	assert.ErrorIs(t, err, booking.ErrInvalidState)
}

func TestIsSeatAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sold("1A", 0, 2)

	ok, err := f.engine.Coordinator.IsSeatAvailable(ctx, f.trip.ID, "1A", f.stop(2), f.stop(4))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.Coordinator.IsSeatAvailable(ctx, f.trip.ID, "1A", f.stop(1), f.stop(3))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.hold(5, "1B", 1, 2)
	require.NoError(t, err)
	ok, err = f.engine.Coordinator.IsSeatAvailable(ctx, f.trip.ID, "1B", f.stop(0), f.stop(4))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.engine.Coordinator.IsSeatAvailable(ctx, f.trip.ID, "1B", f.stop(3), f.stop(3))
	assert.ErrorIs(t, err, booking.ErrInvalidArgument)
}

func TestExpiredHoldNeverBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.hold(1, "1A", 0, 4)
	require.NoError(t, err)

	// Expiry is exclusive: at expires_at the hold is no longer active.
	f.clock.Advance(10 * time.Minute)
	ok, err := f.engine.Coordinator.IsSeatAvailable(ctx, f.trip.ID, "1A", f.stop(1), f.stop(2))
	require.NoError(t, err)
	assert.True(t, ok)

	active, err := f.engine.Coordinator.ActiveHolds(ctx, f.trip.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = f.hold(2, "1A", 1, 2)
	assert.NoError(t, err)
}

func TestSweepAndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.hold(1, "1A", 0, 1)
	require.NoError(t, err)
	_, err = f.hold(1, "1B", 0, 1)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)
	live, err := f.hold(2, "2A", 0, 1)
	require.NoError(t, err)

	n, err := f.engine.Holds.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(6 * time.Minute)
	n, err = f.engine.Holds.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, f.pub.expired, 1)
	assert.Len(t, f.pub.expired[0], 2)

	n, err = f.engine.Holds.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.pub.expired, 1)

	purged, err := f.engine.Holds.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
	assert.Equal(t, 1, f.store.HoldCount())

	h, err := f.store.GetHold(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldActive, h.Status)
}

func TestValidateActiveHoldsReturnsPassingHoldsWithFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.hold(7, "1A", 0, 1)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)
	live, err := f.hold(7, "1B", 0, 1)
	require.NoError(t, err)
	f.clock.Advance(6 * time.Minute)

	holds, err := f.engine.Holds.ValidateActiveHolds(ctx, f.store, f.trip.ID, []string{"1A", "1B", "2A"}, 7)
	require.ErrorIs(t, err, booking.ErrInvalidState)
	failed := make(map[string]string)
	for _, fl := range booking.FailuresOf(err) {
		failed[fl.SeatNumber] = fl.Reason
	}
	assert.Equal(t, map[string]string{"1A": "hold expired", "2A": "no active hold"}, failed)
	require.Len(t, holds, 1)
	assert.Equal(t, live.ID, holds[0].ID)
}

// staleReadStore reports extra rows from FindExpiredHolds, as a read that
// raced with a release would.
type staleReadStore struct {
	*memory.Store
	stale []model.Hold
}

func (s *staleReadStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo booking.InventoryRepository) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, repo booking.InventoryRepository) error {
		return fn(ctx, &staleReadRepo{InventoryRepository: repo, stale: s.stale})
	})
}

type staleReadRepo struct {
	booking.InventoryRepository
	stale []model.Hold
}

func (r *staleReadRepo) FindExpiredHolds(ctx context.Context, before time.Time) ([]model.Hold, error) {
	holds, err := r.InventoryRepository.FindExpiredHolds(ctx, before)
	if err != nil {
		return nil, err
	}
	return append(holds, r.stale...), nil
}

func TestSweepPublishesOnlyChangedHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	released, err := f.hold(1, "1A", 0, 2)
	require.NoError(t, err)
	stale := *released
	_, err = f.engine.Coordinator.ReleaseHold(ctx, released.ID, 1)
	require.NoError(t, err)
	lapsed, err := f.hold(2, "1B", 0, 2)
	require.NoError(t, err)
	f.clock.Advance(11 * time.Minute)

	pub := &recordingPublisher{}
	engine := booking.New(booking.Deps{
		Store:    &staleReadStore{Store: f.store, stale: []model.Hold{stale}},
		Topology: f.store,
		Config:   f.config,
		Clock:    f.clock,
		Hooks:    booking.Hooks{Publisher: pub},
	})

	n, err := engine.Holds.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, pub.expired, 1)
	require.Len(t, pub.expired[0], 1)
	assert.Equal(t, lapsed.ID, pub.expired[0][0].ID)
	assert.Equal(t, model.HoldExpired, pub.expired[0][0].Status)
}

func TestReleaseHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.hold(1, "1A", 0, 3)
	require.NoError(t, err)

	_, err = f.engine.Coordinator.ReleaseHold(ctx, h.ID, 2)
	assert.ErrorIs(t, err, booking.ErrInvalidState)

	released, err := f.engine.Coordinator.ReleaseHold(ctx, h.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.HoldExpired, released.Status)

	again, err := f.engine.Coordinator.ReleaseHold(ctx, h.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.HoldExpired, again.Status)

	_, err = f.engine.Coordinator.ReleaseHold(ctx, 12345, 1)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.hold(2, "1A", 1, 2)
	assert.NoError(t, err)
}

func TestConcurrentHoldsForSameSeat(t *testing.T) {
	f := newFixture(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(holder uint64) {
			defer wg.Done()
			// Every request overlaps [1,3).
			from := int(holder % 2)
			_, err := f.hold(holder, "1B", from, 3)
			switch {
			case err == nil:
				succeeded.Add(1)
			case booking.KindOf(err) == booking.KindConflict:
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
	assert.Equal(t, 1, f.store.HoldCount())
}
