package booking

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// PurchaseResult is a purchase together with its tickets.
type PurchaseResult struct {
	Purchase model.Purchase
	Tickets  []model.Ticket
}

// Coordinator orchestrates hold creation, purchase start and the promotion
// of a purchase's tickets to SOLD.  At most one SOLD ticket may ever exist
// for a (trip, seat) with an overlapping segment: holds are exclusive at
// checkout and the promotion re-checks sold overlap inside its own
// transaction before committing.
type Coordinator struct {
	store    Store
	topology *RouteTopology
	checker  *OverlapChecker
	holds    *HoldManager
	pricer   PriceCalculator
	clock    Clock
	hooks    Hooks
}

// NewCoordinator wires a Coordinator from its collaborators.
func NewCoordinator(store Store, topology *RouteTopology, checker *OverlapChecker, holds *HoldManager, pricer PriceCalculator, clock Clock, hooks Hooks) *Coordinator {
	if store == nil || topology == nil || checker == nil || holds == nil || pricer == nil || clock == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	return &Coordinator{
		store:    store,
		topology: topology,
		checker:  checker,
		holds:    holds,
		pricer:   pricer,
		clock:    clock,
		hooks:    hooks.withDefaults(),
	}
}

// IsSeatAvailable reports whether the seat is free for the segment.
func (c *Coordinator) IsSeatAvailable(ctx context.Context, tripID uint64, seatNumber string, fromStopID, toStopID uint64) (bool, error) {
	return c.checker.IsSeatAvailable(ctx, tripID, seatNumber, fromStopID, toStopID)
}

// CreateHold validates the request and places a hold.
func (c *Coordinator) CreateHold(ctx context.Context, req HoldRequest) (*model.Hold, error) {
	target, err := c.checker.Resolve(ctx, c.store, req.TripID, req.SeatNumber, req.FromStopID, req.ToStopID)
	if err != nil {
		c.hooks.Metrics.HoldRejected(KindOf(err).String())
		return nil, err
	}
	if !target.Trip.Status.Sellable() {
		c.hooks.Metrics.HoldRejected("trip_closed")
		return nil, invalidState("trip %d is %s and no longer sells seats", target.Trip.ID, target.Trip.Status)
	}
	conflicts, err := c.checker.Conflicts(ctx, c.store, target.Trip.ID, target.Seat.Number, target.Segment)
	if err != nil {
		return nil, err
	}
	if !conflicts.Empty() {
		c.hooks.Metrics.HoldRejected("conflict")
		return nil, conflictFor(target, conflicts)
	}
	return c.holds.Create(ctx, req)
}

// ReleaseHold expires a hold owned by holderID.
func (c *Coordinator) ReleaseHold(ctx context.Context, holdID, holderID uint64) (*model.Hold, error) {
	return c.holds.Release(ctx, holdID, holderID)
}

// ActiveHolds lists the holder's unexpired holds on a trip.
func (c *Coordinator) ActiveHolds(ctx context.Context, tripID, holderID uint64) ([]model.Hold, error) {
	return c.holds.ActiveHolds(ctx, tripID, holderID)
}

// StartPurchase creates a PENDING purchase with one PENDING ticket per
// active hold the holder has on the requested seats.
func (c *Coordinator) StartPurchase(ctx context.Context, tripID, holderID uint64, seatNumbers []string) (*PurchaseResult, error) {
	if holderID == 0 {
		return nil, invalidArgument("holder is required")
	}
	var result *PurchaseResult
	err := c.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		trip, err := repo.GetTrip(ctx, tripID)
		if err != nil {
			return lookupErr(err, "trip", tripID)
		}
		if !trip.Status.Sellable() {
			return invalidState("trip %d is %s and no longer sells seats", trip.ID, trip.Status)
		}
		holds, err := c.holds.ValidateActiveHolds(ctx, repo, tripID, seatNumbers, holderID)
		if err != nil {
			return err
		}
		legs, err := c.topology.RouteLegs(ctx, trip.RouteID)
		if err != nil {
			return err
		}
		now := c.clock.Now()
		tickets := make([]*model.Ticket, 0, len(holds))
		total := decimal.Zero
		for _, h := range holds {
			seat, err := repo.GetSeat(ctx, trip.BusID, h.SeatNumber)
			if err != nil {
				return lookupErr(err, "seat", h.SeatNumber)
			}
			price, err := c.pricer.Price(ctx, trip, seat, h.Segment(), legs)
			if err != nil {
				return &Error{Kind: KindInvalidArgument, Message: "fare is not configured", Err: err}
			}
			total = total.Add(price)
			tickets = append(tickets, &model.Ticket{
				TripID:     trip.ID,
				SeatNumber: h.SeatNumber,
				HolderID:   holderID,
				FromStopID: h.FromStopID,
				ToStopID:   h.ToStopID,
				FromOrder:  h.FromOrder,
				ToOrder:    h.ToOrder,
				Status:     model.TicketPending,
				Price:      price,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
		p := &model.Purchase{
			TripID:    trip.ID,
			HolderID:  holderID,
			Status:    model.PurchasePending,
			Total:     total,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreatePurchase(ctx, p); err != nil {
			return err
		}
		for _, t := range tickets {
			t.PurchaseID = p.ID
		}
		if err := repo.CreateTickets(ctx, tickets); err != nil {
			return err
		}
		result = &PurchaseResult{Purchase: *p, Tickets: derefTickets(tickets)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func derefTickets(in []*model.Ticket) []model.Ticket {
	out := make([]model.Ticket, len(in))
	for i, t := range in {
		out[i] = *t
	}
	return out
}

// ConfirmPurchase promotes every ticket of a PENDING purchase to SOLD.  Holds
// are validated first outside the transaction so obviously stale purchases
// fail fast; the transaction then re-validates holds and sold overlap
// against its own clock reading before writing anything.  A single failing
// seat aborts the whole promotion and leaves every ticket PENDING.
func (c *Coordinator) ConfirmPurchase(ctx context.Context, purchaseID uint64) (*PurchaseResult, error) {
	p, err := c.store.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, lookupErr(err, "purchase", purchaseID)
	}
	if p.Status != model.PurchasePending {
		return nil, invalidState("purchase %d is %s", p.ID, p.Status)
	}
	tickets, err := c.store.ListTicketsByPurchase(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if _, err := c.validatePromotion(ctx, c.store, p, tickets); err != nil {
		c.hooks.Metrics.PurchaseRejected("validation")
		return nil, err
	}

	var result *PurchaseResult
	err = c.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		p, err := repo.LockPurchase(ctx, purchaseID)
		if err != nil {
			return lookupErr(err, "purchase", purchaseID)
		}
		if p.Status != model.PurchasePending {
			return invalidState("purchase %d is %s", p.ID, p.Status)
		}
		tickets, err := repo.ListTicketsByPurchase(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := c.lockSeats(ctx, repo, p.TripID, tickets); err != nil {
			return err
		}
		holds, err := c.validatePromotion(ctx, repo, p, tickets)
		if err != nil {
			return err
		}
		// Backing holds are claimed before any ticket moves.  A hold that is
		// no longer HOLD here was taken by another confirmation.
		for _, h := range holds {
			ok, err := repo.ExpireHold(ctx, h.ID)
			if err != nil {
				return err
			}
			if !ok {
				e := conflict("hold %d was consumed during confirmation", h.ID)
				e.Failures = []SeatFailure{seatFailure(h.SeatNumber, h.Segment(), "hold no longer active")}
				return e
			}
		}
		now := c.clock.Now()
		for i := range tickets {
			ok, err := repo.UpdateTicketStatus(ctx, tickets[i].ID, model.TicketPending, model.TicketSold)
			if err != nil {
				return err
			}
			if !ok {
				e := conflict("ticket %d changed during confirmation", tickets[i].ID)
				e.Failures = []SeatFailure{seatFailure(tickets[i].SeatNumber, tickets[i].Segment(), "ticket no longer pending")}
				return e
			}
			tickets[i].Status = model.TicketSold
			tickets[i].UpdatedAt = now
		}
		ok, err := repo.UpdatePurchaseStatus(ctx, p.ID, model.PurchasePending, model.PurchaseConfirmed)
		if err != nil {
			return err
		}
		if !ok {
			return invalidState("purchase %d changed during confirmation", p.ID)
		}
		p.Status = model.PurchaseConfirmed
		p.UpdatedAt = now
		result = &PurchaseResult{Purchase: *p, Tickets: tickets}
		return nil
	})
	if err != nil {
		c.hooks.Metrics.PurchaseRejected(KindOf(err).String())
		return nil, err
	}
	c.hooks.Metrics.PurchaseConfirmed(len(result.Tickets))
	if err := c.hooks.Publisher.PublishPurchaseConfirmed(ctx, result.Purchase, result.Tickets); err != nil {
		c.hooks.Log.Warnf("publish purchase.confirmed for purchase %d failed: %v", result.Purchase.ID, err)
	}
	return result, nil
}

// lockSeats takes the row lock of every seat the tickets sit on, in seat
// order, so confirmations touching the same seat run one after another and
// each one validates against the other's committed result.
func (c *Coordinator) lockSeats(ctx context.Context, repo InventoryRepository, tripID uint64, tickets []model.Ticket) error {
	trip, err := repo.GetTrip(ctx, tripID)
	if err != nil {
		return lookupErr(err, "trip", tripID)
	}
	seats := make([]string, 0, len(tickets))
	for _, t := range tickets {
		seats = append(seats, t.SeatNumber)
	}
	for _, seat := range uniqueSeats(seats) {
		if _, err := repo.LockSeat(ctx, trip.BusID, seat); err != nil {
			return lookupErr(err, "seat", seat)
		}
	}
	return nil
}

// validatePromotion checks, for every ticket, that it is still PENDING, that
// the holder has an active hold on exactly its seat+segment and that no
// SOLD ticket overlaps it.  It returns the holds backing the tickets.
func (c *Coordinator) validatePromotion(ctx context.Context, repo InventoryRepository, p *model.Purchase, tickets []model.Ticket) ([]model.Hold, error) {
	if len(tickets) == 0 {
		return nil, invalidState("purchase %d has no tickets", p.ID)
	}
	seats := make([]string, 0, len(tickets))
	for _, t := range tickets {
		seats = append(seats, t.SeatNumber)
	}
	holds, err := c.holds.ValidateActiveHolds(ctx, repo, p.TripID, seats, p.HolderID)
	if err != nil && KindOf(err) != KindInvalidState {
		return nil, err
	}
	failed := make(map[string]string)
	for _, f := range FailuresOf(err) {
		failed[f.SeatNumber] = f.Reason
	}

	var (
		backing  []model.Hold
		failures []SeatFailure
	)
	for _, t := range tickets {
		if t.Status != model.TicketPending {
			failures = append(failures, seatFailure(t.SeatNumber, t.Segment(), "ticket is "+string(t.Status)))
			continue
		}
		if reason, ok := failed[t.SeatNumber]; ok {
			failures = append(failures, seatFailure(t.SeatNumber, t.Segment(), reason))
			continue
		}
		hold, ok := matchHold(holds, t)
		if !ok {
			failures = append(failures, seatFailure(t.SeatNumber, t.Segment(), "no active hold for segment"))
			continue
		}
		sold, err := c.checker.SoldConflicts(ctx, repo, t.TripID, t.SeatNumber, t.Segment())
		if err != nil {
			return nil, err
		}
		if len(sold) > 0 {
			failures = append(failures, seatFailure(t.SeatNumber, t.Segment(), "already sold"))
			continue
		}
		backing = append(backing, hold)
	}
	if len(failures) > 0 {
		e := invalidState("purchase %d cannot be confirmed", p.ID)
		e.Failures = failures
		return nil, e
	}
	return backing, nil
}

func matchHold(holds []model.Hold, t model.Ticket) (model.Hold, bool) {
	for _, h := range holds {
		if h.SeatNumber == t.SeatNumber && h.Segment() == t.Segment() {
			return h, true
		}
	}
	return model.Hold{}, false
}

// CancelPurchase cancels a purchase and all of its tickets.  Seats held for
// a still PENDING purchase are released as well.  Purchases of trips that
// already departed cannot be cancelled.
func (c *Coordinator) CancelPurchase(ctx context.Context, purchaseID, holderID uint64) (*PurchaseResult, error) {
	var result *PurchaseResult
	err := c.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		p, err := repo.LockPurchase(ctx, purchaseID)
		if err != nil {
			return lookupErr(err, "purchase", purchaseID)
		}
		if holderID != 0 && p.HolderID != holderID {
			return notFound("purchase %d not found", p.ID)
		}
		tickets, err := repo.ListTicketsByPurchase(ctx, p.ID)
		if err != nil {
			return err
		}
		if p.Status == model.PurchaseCancelled {
			result = &PurchaseResult{Purchase: *p, Tickets: tickets}
			return nil
		}
		trip, err := repo.GetTrip(ctx, p.TripID)
		if err != nil {
			return lookupErr(err, "trip", p.TripID)
		}
		if trip.Status == model.TripDeparted || trip.Status == model.TripArrived {
			return invalidState("trip %d is %s; purchase %d can no longer be cancelled", trip.ID, trip.Status, p.ID)
		}
		now := c.clock.Now()
		if p.Status == model.PurchasePending {
			active, err := repo.FindActiveHoldsByTripAndHolder(ctx, p.TripID, p.HolderID, now)
			if err != nil {
				return err
			}
			for _, t := range tickets {
				if h, ok := matchHold(activeOnly(active, now), t); ok {
					if _, err := repo.ExpireHold(ctx, h.ID); err != nil {
						return err
					}
				}
			}
		}
		for i := range tickets {
			if tickets[i].Status == model.TicketCancelled {
				continue
			}
			if _, err := repo.UpdateTicketStatus(ctx, tickets[i].ID, tickets[i].Status, model.TicketCancelled); err != nil {
				return err
			}
			tickets[i].Status = model.TicketCancelled
			tickets[i].UpdatedAt = now
		}
		ok, err := repo.UpdatePurchaseStatus(ctx, p.ID, p.Status, model.PurchaseCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return invalidState("purchase %d changed during cancellation", p.ID)
		}
		p.Status = model.PurchaseCancelled
		p.UpdatedAt = now
		result = &PurchaseResult{Purchase: *p, Tickets: tickets}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetPurchase returns a purchase and its tickets.
func (c *Coordinator) GetPurchase(ctx context.Context, purchaseID uint64) (*PurchaseResult, error) {
	p, err := c.store.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, lookupErr(err, "purchase", purchaseID)
	}
	tickets, err := c.store.ListTicketsByPurchase(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Purchase: *p, Tickets: tickets}, nil
}
