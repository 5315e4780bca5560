package booking

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// SettingHoldTTL is the setting holding the hold lifetime in minutes.
const SettingHoldTTL = "hold.ttl_minutes"

// HoldRequest identifies the seat+segment a holder wants to reserve.
type HoldRequest struct {
	TripID     uint64
	SeatNumber string
	HolderID   uint64
	FromStopID uint64
	ToStopID   uint64
}

// HoldManager owns the hold lifecycle: creation, release, the expiry sweep
// and the purge of expired rows.
type HoldManager struct {
	store   Store
	checker *OverlapChecker
	config  ConfigProvider
	clock   Clock
	hooks   Hooks
}

// NewHoldManager builds a HoldManager.
func NewHoldManager(store Store, checker *OverlapChecker, config ConfigProvider, clock Clock, hooks Hooks) *HoldManager {
	if store == nil || checker == nil || config == nil || clock == nil {
		panic("nil dependency passed to NewHoldManager")
	}
	return &HoldManager{store: store, checker: checker, config: config, clock: clock, hooks: hooks.withDefaults()}
}

// TTL reads the hold lifetime from configuration.
func (m *HoldManager) TTL(ctx context.Context) (time.Duration, error) {
	minutes, err := m.config.GetInt(ctx, SettingHoldTTL)
	if err != nil {
		return 0, &Error{Kind: KindInvalidArgument, Message: "hold ttl is not configured", Err: err}
	}
	if minutes <= 0 {
		return 0, invalidArgument("hold ttl must be positive, got %d minutes", minutes)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// Create reserves the seat+segment for the holder.  The seat row is locked
// for the duration of the transaction so that two concurrent requests for
// overlapping segments of the same seat are serialised and the second one
// observes the first one's hold.
func (m *HoldManager) Create(ctx context.Context, req HoldRequest) (*model.Hold, error) {
	if req.HolderID == 0 {
		return nil, invalidArgument("holder is required")
	}
	ttl, err := m.TTL(ctx)
	if err != nil {
		return nil, err
	}
	var hold *model.Hold
	err = m.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		target, err := m.checker.Resolve(ctx, repo, req.TripID, req.SeatNumber, req.FromStopID, req.ToStopID)
		if err != nil {
			return err
		}
		if _, err := repo.LockSeat(ctx, target.Trip.BusID, target.Seat.Number); err != nil {
			return lookupErr(err, "seat", target.Seat.Number)
		}
		conflicts, err := m.checker.Conflicts(ctx, repo, target.Trip.ID, target.Seat.Number, target.Segment)
		if err != nil {
			return err
		}
		if !conflicts.Empty() {
			m.hooks.Metrics.HoldRejected("conflict")
			return conflictFor(target, conflicts)
		}
		now := m.clock.Now()
		h := &model.Hold{
			TripID:     target.Trip.ID,
			SeatNumber: target.Seat.Number,
			HolderID:   req.HolderID,
			FromStopID: target.FromStopID,
			ToStopID:   target.ToStopID,
			FromOrder:  target.Segment.From,
			ToOrder:    target.Segment.To,
			Status:     model.HoldActive,
			ExpiresAt:  now.Add(ttl),
			CreatedAt:  now,
		}
		if err := repo.CreateHold(ctx, h); err != nil {
			return err
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.hooks.Metrics.HoldCreated()
	return hold, nil
}

func conflictFor(target *Target, c Conflicts) *Error {
	reason := "held by another checkout"
	if len(c.Sold) > 0 {
		reason = "already sold"
	}
	e := conflict("seat %s is not available for %s on trip %d", target.Seat.Number, target.Segment, target.Trip.ID)
	e.Failures = []SeatFailure{seatFailure(target.Seat.Number, target.Segment, reason)}
	return e
}

// Release expires a hold.  Releasing an already expired hold is a no-op.
// When holderID is non-zero the hold must belong to that holder.
func (m *HoldManager) Release(ctx context.Context, holdID, holderID uint64) (*model.Hold, error) {
	var released *model.Hold
	err := m.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		h, err := repo.GetHold(ctx, holdID)
		if err != nil {
			return lookupErr(err, "hold", holdID)
		}
		if holderID != 0 && h.HolderID != holderID {
			return invalidState("hold %d belongs to another holder", holdID)
		}
		if h.Status == model.HoldActive {
			if _, err := repo.ExpireHold(ctx, holdID); err != nil {
				return err
			}
			h.Status = model.HoldExpired
		}
		released = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ActiveHolds lists the holder's unexpired holds on a trip.
func (m *HoldManager) ActiveHolds(ctx context.Context, tripID, holderID uint64) ([]model.Hold, error) {
	if _, err := m.store.GetTrip(ctx, tripID); err != nil {
		return nil, lookupErr(err, "trip", tripID)
	}
	now := m.clock.Now()
	rows, err := m.store.FindActiveHoldsByTripAndHolder(ctx, tripID, holderID, now)
	if err != nil {
		return nil, err
	}
	return activeOnly(rows, now), nil
}

func activeOnly(rows []model.Hold, now time.Time) []model.Hold {
	out := make([]model.Hold, 0, len(rows))
	for _, h := range rows {
		if h.ActiveAt(now) {
			out = append(out, h)
		}
	}
	return out
}

// ValidateActiveHolds checks that the holder has an unexpired hold on every
// requested seat of the trip and returns those holds.  It is all-or-nothing:
// the returned error lists every seat that failed, and the holds of the
// seats that passed are returned alongside it.
func (m *HoldManager) ValidateActiveHolds(ctx context.Context, repo InventoryRepository, tripID uint64, seatNumbers []string, holderID uint64) ([]model.Hold, error) {
	seats := uniqueSeats(seatNumbers)
	if len(seats) == 0 {
		return nil, invalidArgument("at least one seat is required")
	}
	rows, err := repo.ListHolds(ctx, tripID, model.HoldActive)
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	bySeat := make(map[string][]model.Hold)
	for _, h := range rows {
		bySeat[h.SeatNumber] = append(bySeat[h.SeatNumber], h)
	}
	var (
		valid    []model.Hold
		failures []SeatFailure
	)
	for _, seat := range seats {
		var mine []model.Hold
		reason := "no active hold"
		for _, h := range bySeat[seat] {
			switch {
			case h.HolderID != holderID:
				if h.ActiveAt(now) && reason == "no active hold" {
					reason = "held by another holder"
				}
			case !h.ExpiresAt.After(now):
				reason = "hold expired"
			default:
				mine = append(mine, h)
			}
		}
		if len(mine) == 0 {
			failures = append(failures, seatFailure(seat, model.Segment{}, reason))
			continue
		}
		valid = append(valid, mine...)
	}
	if len(failures) > 0 {
		e := invalidState("holds are not valid for trip %d", tripID)
		e.Failures = failures
		return valid, e
	}
	return valid, nil
}

func uniqueSeats(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SweepExpired moves every HOLD row whose expiry has passed to EXPIRED and
// returns how many rows changed.  Each update is conditional on the row
// still being HOLD, so only the holds this sweep actually expired are
// counted and published.
func (m *HoldManager) SweepExpired(ctx context.Context) (int64, error) {
	now := m.clock.Now()
	var changed []model.Hold
	err := m.store.WithinTx(ctx, func(ctx context.Context, repo InventoryRepository) error {
		changed = nil
		expired, err := repo.FindExpiredHolds(ctx, now)
		if err != nil {
			return err
		}
		for _, h := range expired {
			ok, err := repo.ExpireHold(ctx, h.ID)
			if err != nil {
				return err
			}
			if ok {
				h.Status = model.HoldExpired
				changed = append(changed, h)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	n := int64(len(changed))
	m.hooks.Metrics.HoldsSwept(n)
	if n > 0 {
		if err := m.hooks.Publisher.PublishHoldsExpired(ctx, changed); err != nil {
			m.hooks.Log.Warnf("publish holds.expired failed: %v", err)
		}
	}
	return n, nil
}

// PurgeExpired permanently removes EXPIRED holds.
func (m *HoldManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpiredHolds(ctx)
	if err != nil {
		return 0, err
	}
	m.hooks.Metrics.HoldsPurged(n)
	return n, nil
}
