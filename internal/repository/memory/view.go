package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// view implements booking.InventoryRepository over a state without taking
// any lock; the caller owns Store.mu.
type view struct {
	st *state
}

var _ booking.InventoryRepository = (*view)(nil)

func noRecord(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, booking.ErrNoRecord)
}

func (v *view) GetBus(_ context.Context, busID uint64) (*model.Bus, error) {
	b, ok := v.st.buses[busID]
	if !ok {
		return nil, noRecord("bus", busID)
	}
	return &b, nil
}

func (v *view) GetSeat(_ context.Context, busID uint64, number string) (*model.Seat, error) {
	for _, s := range v.st.seats {
		if s.BusID == busID && s.Number == number {
			seat := s
			return &seat, nil
		}
	}
	return nil, noRecord("seat", number)
}

func (v *view) LockSeat(ctx context.Context, busID uint64, number string) (*model.Seat, error) {
	return v.GetSeat(ctx, busID, number)
}

func (v *view) CreateTrip(_ context.Context, t *model.Trip) error {
	t.ID = v.st.id()
	v.st.trips[t.ID] = *t
	return nil
}

func (v *view) GetTrip(_ context.Context, tripID uint64) (*model.Trip, error) {
	t, ok := v.st.trips[tripID]
	if !ok {
		return nil, noRecord("trip", tripID)
	}
	return &t, nil
}

func (v *view) LockTrip(ctx context.Context, tripID uint64) (*model.Trip, error) {
	return v.GetTrip(ctx, tripID)
}

func (v *view) UpdateTripStatus(_ context.Context, tripID uint64, from, to model.TripStatus) (bool, error) {
	t, ok := v.st.trips[tripID]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	v.st.trips[tripID] = t
	return true, nil
}

func (v *view) UpdateTripOverbooking(_ context.Context, tripID uint64, percent int) error {
	t, ok := v.st.trips[tripID]
	if !ok {
		return noRecord("trip", tripID)
	}
	t.OverbookingPercent = percent
	v.st.trips[tripID] = t
	return nil
}

func (v *view) CreateHold(_ context.Context, h *model.Hold) error {
	h.ID = v.st.id()
	v.st.holds[h.ID] = *h
	return nil
}

func (v *view) GetHold(_ context.Context, holdID uint64) (*model.Hold, error) {
	h, ok := v.st.holds[holdID]
	if !ok {
		return nil, noRecord("hold", holdID)
	}
	return &h, nil
}

func (v *view) ExpireHold(_ context.Context, holdID uint64) (bool, error) {
	h, ok := v.st.holds[holdID]
	if !ok || h.Status != model.HoldActive {
		return false, nil
	}
	h.Status = model.HoldExpired
	v.st.holds[holdID] = h
	return true, nil
}

func (v *view) filterHolds(keep func(model.Hold) bool) []model.Hold {
	out := make([]model.Hold, 0)
	for _, h := range v.st.holds {
		if keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *view) ListHolds(_ context.Context, tripID uint64, status model.HoldStatus) ([]model.Hold, error) {
	return v.filterHolds(func(h model.Hold) bool {
		return h.TripID == tripID && h.Status == status
	}), nil
}

func (v *view) FindOverlappingHolds(_ context.Context, tripID uint64, seat string, seg model.Segment, now time.Time) ([]model.Hold, error) {
	return v.filterHolds(func(h model.Hold) bool {
		return h.TripID == tripID && h.SeatNumber == seat && h.ActiveAt(now) && h.Segment().Overlaps(seg)
	}), nil
}

func (v *view) FindActiveHoldsByTripAndHolder(_ context.Context, tripID, holderID uint64, now time.Time) ([]model.Hold, error) {
	return v.filterHolds(func(h model.Hold) bool {
		return h.TripID == tripID && h.HolderID == holderID && h.ActiveAt(now)
	}), nil
}

func (v *view) FindActiveHoldsByTrip(_ context.Context, tripID uint64, now time.Time) ([]model.Hold, error) {
	return v.filterHolds(func(h model.Hold) bool {
		return h.TripID == tripID && h.ActiveAt(now)
	}), nil
}

func (v *view) FindExpiredHolds(_ context.Context, before time.Time) ([]model.Hold, error) {
	return v.filterHolds(func(h model.Hold) bool {
		return h.Status == model.HoldActive && h.ExpiresAt.Before(before)
	}), nil
}

func (v *view) expireWhere(match func(model.Hold) bool) int64 {
	var n int64
	for id, h := range v.st.holds {
		if h.Status == model.HoldActive && match(h) {
			h.Status = model.HoldExpired
			v.st.holds[id] = h
			n++
		}
	}
	return n
}

func (v *view) ExpireHoldsByTrip(_ context.Context, tripID uint64) (int64, error) {
	return v.expireWhere(func(h model.Hold) bool { return h.TripID == tripID }), nil
}

func (v *view) DeleteExpiredHolds(_ context.Context) (int64, error) {
	var n int64
	for id, h := range v.st.holds {
		if h.Status == model.HoldExpired {
			delete(v.st.holds, id)
			n++
		}
	}
	return n, nil
}

func (v *view) CreateTickets(_ context.Context, tickets []*model.Ticket) error {
	for _, t := range tickets {
		t.ID = v.st.id()
		v.st.tickets[t.ID] = *t
	}
	return nil
}

func (v *view) filterTickets(keep func(model.Ticket) bool) []model.Ticket {
	out := make([]model.Ticket, 0)
	for _, t := range v.st.tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *view) ListTicketsByPurchase(_ context.Context, purchaseID uint64) ([]model.Ticket, error) {
	return v.filterTickets(func(t model.Ticket) bool { return t.PurchaseID == purchaseID }), nil
}

func (v *view) UpdateTicketStatus(_ context.Context, ticketID uint64, from, to model.TicketStatus) (bool, error) {
	t, ok := v.st.tickets[ticketID]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	v.st.tickets[ticketID] = t
	return true, nil
}

func (v *view) FindOverlappingSold(_ context.Context, tripID uint64, seat string, seg model.Segment) ([]model.Ticket, error) {
	return v.filterTickets(func(t model.Ticket) bool {
		return t.TripID == tripID && t.SeatNumber == seat && t.Status == model.TicketSold && t.Segment().Overlaps(seg)
	}), nil
}

func (v *view) CountSold(_ context.Context, tripID uint64) (int, error) {
	return len(v.filterTickets(func(t model.Ticket) bool {
		return t.TripID == tripID && t.Status == model.TicketSold
	})), nil
}

func (v *view) CreatePurchase(_ context.Context, p *model.Purchase) error {
	p.ID = v.st.id()
	v.st.purchases[p.ID] = *p
	return nil
}

func (v *view) GetPurchase(_ context.Context, purchaseID uint64) (*model.Purchase, error) {
	p, ok := v.st.purchases[purchaseID]
	if !ok {
		return nil, noRecord("purchase", purchaseID)
	}
	return &p, nil
}

func (v *view) LockPurchase(ctx context.Context, purchaseID uint64) (*model.Purchase, error) {
	return v.GetPurchase(ctx, purchaseID)
}

func (v *view) UpdatePurchaseStatus(_ context.Context, purchaseID uint64, from, to model.PurchaseStatus) (bool, error) {
	p, ok := v.st.purchases[purchaseID]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	v.st.purchases[purchaseID] = p
	return true, nil
}
