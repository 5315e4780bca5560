package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository/memory"
)

// interleavedStore runs transactions without isolation against the memory
// store, so every write is visible at once.  beforeWrite runs once, right
// before the first write of the next transaction, and lets a test commit a
// competing change in between a read and a write.
type interleavedStore struct {
	*memory.Store
	beforeWrite func(ctx context.Context)
}

func (s *interleavedStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo booking.InventoryRepository) error) error {
	return fn(ctx, &interleavedRepo{InventoryRepository: s.Store, store: s})
}

type interleavedRepo struct {
	booking.InventoryRepository
	store *interleavedStore
}

func (r *interleavedRepo) write(ctx context.Context) {
	if hook := r.store.beforeWrite; hook != nil {
		r.store.beforeWrite = nil
		hook(ctx)
	}
}

func (r *interleavedRepo) ExpireHold(ctx context.Context, holdID uint64) (bool, error) {
	r.write(ctx)
	return r.InventoryRepository.ExpireHold(ctx, holdID)
}

func (r *interleavedRepo) UpdateTicketStatus(ctx context.Context, ticketID uint64, from, to model.TicketStatus) (bool, error) {
	r.write(ctx)
	return r.InventoryRepository.UpdateTicketStatus(ctx, ticketID, from, to)
}

func (r *interleavedRepo) UpdatePurchaseStatus(ctx context.Context, purchaseID uint64, from, to model.PurchaseStatus) (bool, error) {
	r.write(ctx)
	return r.InventoryRepository.UpdatePurchaseStatus(ctx, purchaseID, from, to)
}

func soldOn(tickets []model.Ticket, seat string) []model.Ticket {
	var out []model.Ticket
	for _, tk := range tickets {
		if tk.SeatNumber == seat && tk.Status == model.TicketSold {
			out = append(out, tk)
		}
	}
	return out
}

func TestConfirmLosesToConfirmationCommittedAfterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.hold(7, "1A", 0, 2)
	require.NoError(t, err)
	first, err := f.engine.Coordinator.StartPurchase(ctx, f.trip.ID, 7, []string{"1A"})
	require.NoError(t, err)
	second, err := f.engine.Coordinator.StartPurchase(ctx, f.trip.ID, 7, []string{"1A"})
	require.NoError(t, err)

	store := &interleavedStore{Store: f.store}
	store.beforeWrite = func(ctx context.Context) {
		for _, tk := range first.Tickets {
			ok, err := f.store.UpdateTicketStatus(ctx, tk.ID, model.TicketPending, model.TicketSold)
			require.NoError(t, err)
			require.True(t, ok)
		}
		ok, err := f.store.ExpireHold(ctx, h.ID)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = f.store.UpdatePurchaseStatus(ctx, first.Purchase.ID, model.PurchasePending, model.PurchaseConfirmed)
		require.NoError(t, err)
		require.True(t, ok)
	}
	engine := booking.New(booking.Deps{
		Store:    store,
		Topology: f.store,
		Config:   f.config,
		Clock:    f.clock,
	})

	_, err = engine.Coordinator.ConfirmPurchase(ctx, second.Purchase.ID)
	require.ErrorIs(t, err, booking.ErrConflict)
	failures := booking.FailuresOf(err)
	require.Len(t, failures, 1)
	assert.Equal(t, "1A", failures[0].SeatNumber)
	assert.Equal(t, model.Segment{From: 0, To: 2}, failures[0].Segment)

	all := f.store.Tickets()
	sold := soldOn(all, "1A")
	require.Len(t, sold, 1)
	assert.Equal(t, first.Purchase.ID, sold[0].PurchaseID)
	for _, tk := range all {
		if tk.PurchaseID == second.Purchase.ID {
			assert.Equal(t, model.TicketPending, tk.Status)
		}
	}
	p, err := f.store.GetPurchase(ctx, second.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchasePending, p.Status)
}

func TestConcurrentConfirmationsSellSeatOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.hold(7, "1A", 0, 2)
	require.NoError(t, err)
	_, err = f.hold(7, "1B", 1, 3)
	require.NoError(t, err)

	const n = 8
	ids := make([]uint64, n)
	for i := range ids {
		res, err := f.engine.Coordinator.StartPurchase(ctx, f.trip.ID, 7, []string{"1A", "1B"})
		require.NoError(t, err)
		ids[i] = res.Purchase.ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  int
		errs []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_, err := f.engine.Coordinator.ConfirmPurchase(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				return
			}
			errs = append(errs, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	for _, err := range errs {
		assert.True(t, errors.Is(err, booking.ErrConflict) || errors.Is(err, booking.ErrInvalidState), err.Error())
	}

	all := f.store.Tickets()
	for _, seat := range []string{"1A", "1B"} {
		sold := soldOn(all, seat)
		for i := range sold {
			for j := i + 1; j < len(sold); j++ {
				assert.False(t, sold[i].Segment().Overlaps(sold[j].Segment()), "%s sold twice", seat)
			}
		}
		assert.Len(t, sold, 1, seat)
	}
	assert.Len(t, f.pub.confirmed, 1)
}
