package booking

import (
	"context"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Target is a fully validated seat+segment of a trip.
type Target struct {
	Trip       *model.Trip
	Seat       *model.Seat
	FromStopID uint64
	ToStopID   uint64
	Segment    model.Segment
}

// Conflicts lists the sold tickets and active holds that overlap a target.
type Conflicts struct {
	Sold  []model.Ticket
	Holds []model.Hold
}

// Empty reports whether there is no conflict.
func (c Conflicts) Empty() bool { return len(c.Sold) == 0 && len(c.Holds) == 0 }

// OverlapChecker decides whether a seat+segment collides with sold tickets
// or active holds of the same trip.  Every method taking a repository uses
// it as given so that checks can run inside a caller's transaction.
type OverlapChecker struct {
	repo     InventoryRepository
	topology *RouteTopology
	clock    Clock
}

// NewOverlapChecker builds a checker reading through repo.
func NewOverlapChecker(repo InventoryRepository, topology *RouteTopology, clock Clock) *OverlapChecker {
	if repo == nil || topology == nil || clock == nil {
		panic("nil dependency passed to NewOverlapChecker")
	}
	return &OverlapChecker{repo: repo, topology: topology, clock: clock}
}

// IsSeatAvailable reports whether seatNumber is free on trip for the segment
// between the two stops.
func (c *OverlapChecker) IsSeatAvailable(ctx context.Context, tripID uint64, seatNumber string, fromStopID, toStopID uint64) (bool, error) {
	target, err := c.Resolve(ctx, c.repo, tripID, seatNumber, fromStopID, toStopID)
	if err != nil {
		return false, err
	}
	conflicts, err := c.Conflicts(ctx, c.repo, tripID, target.Seat.Number, target.Segment)
	if err != nil {
		return false, err
	}
	return conflicts.Empty(), nil
}

// Resolve validates the trip, the stops and the seat and returns the target.
func (c *OverlapChecker) Resolve(ctx context.Context, repo InventoryRepository, tripID uint64, seatNumber string, fromStopID, toStopID uint64) (*Target, error) {
	seatNumber = strings.TrimSpace(seatNumber)
	if seatNumber == "" {
		return nil, invalidArgument("seat number is required")
	}
	trip, err := repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, lookupErr(err, "trip", tripID)
	}
	seg, err := c.topology.ResolveSegment(ctx, trip, fromStopID, toStopID)
	if err != nil {
		return nil, err
	}
	seat, err := repo.GetSeat(ctx, trip.BusID, seatNumber)
	if err != nil {
		return nil, lookupErr(err, "seat", seatNumber)
	}
	return &Target{Trip: trip, Seat: seat, FromStopID: fromStopID, ToStopID: toStopID, Segment: seg}, nil
}

// Conflicts returns the sold tickets and active holds for (trip, seat)
// that overlap seg.  Rows returned by the repository are filtered again by
// segment and expiry so that a stale or loose query never leaks through.
func (c *OverlapChecker) Conflicts(ctx context.Context, repo InventoryRepository, tripID uint64, seat string, seg model.Segment) (Conflicts, error) {
	sold, err := c.SoldConflicts(ctx, repo, tripID, seat, seg)
	if err != nil {
		return Conflicts{}, err
	}
	now := c.clock.Now()
	candidates, err := repo.FindOverlappingHolds(ctx, tripID, seat, seg, now)
	if err != nil {
		return Conflicts{}, err
	}
	var holds []model.Hold
	for _, h := range candidates {
		if h.SeatNumber == seat && h.ActiveAt(now) && h.Segment().Overlaps(seg) {
			holds = append(holds, h)
		}
	}
	return Conflicts{Sold: sold, Holds: holds}, nil
}

// SoldConflicts returns the SOLD tickets for (trip, seat) overlapping seg.
func (c *OverlapChecker) SoldConflicts(ctx context.Context, repo InventoryRepository, tripID uint64, seat string, seg model.Segment) ([]model.Ticket, error) {
	candidates, err := repo.FindOverlappingSold(ctx, tripID, seat, seg)
	if err != nil {
		return nil, err
	}
	var sold []model.Ticket
	for _, t := range candidates {
		if t.SeatNumber == seat && t.Status == model.TicketSold && t.Segment().Overlaps(seg) {
			sold = append(sold, t)
		}
	}
	return sold, nil
}
