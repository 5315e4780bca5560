package handler

import (
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Response bodies.  Money is rendered with two decimals as a string so that
// clients never round through floating point.

type holdResponse struct {
	ID         uint64    `json:"id"`
	TripID     uint64    `json:"trip_id"`
	SeatNumber string    `json:"seat_number"`
	HolderID   uint64    `json:"holder_id"`
	FromStopID uint64    `json:"from_stop_id"`
	ToStopID   uint64    `json:"to_stop_id"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func toHold(h model.Hold) holdResponse {
	return holdResponse{
		ID:         h.ID,
		TripID:     h.TripID,
		SeatNumber: h.SeatNumber,
		HolderID:   h.HolderID,
		FromStopID: h.FromStopID,
		ToStopID:   h.ToStopID,
		Status:     string(h.Status),
		ExpiresAt:  h.ExpiresAt,
	}
}

func toHolds(in []model.Hold) []holdResponse {
	out := make([]holdResponse, 0, len(in))
	for _, h := range in {
		out = append(out, toHold(h))
	}
	return out
}

type ticketResponse struct {
	ID         uint64 `json:"id"`
	SeatNumber string `json:"seat_number"`
	FromStopID uint64 `json:"from_stop_id"`
	ToStopID   uint64 `json:"to_stop_id"`
	Status     string `json:"status"`
	Price      string `json:"price"`
}

type purchaseResponse struct {
	ID       uint64           `json:"id"`
	TripID   uint64           `json:"trip_id"`
	HolderID uint64           `json:"holder_id"`
	Status   string           `json:"status"`
	Total    string           `json:"total"`
	Tickets  []ticketResponse `json:"tickets"`
}

func toPurchase(r *booking.PurchaseResult) purchaseResponse {
	p := r.Purchase
	out := purchaseResponse{
		ID:       p.ID,
		TripID:   p.TripID,
		HolderID: p.HolderID,
		Status:   string(p.Status),
		Total:    p.Total.StringFixed(2),
		Tickets:  make([]ticketResponse, 0, len(r.Tickets)),
	}
	for _, t := range r.Tickets {
		out.Tickets = append(out.Tickets, ticketResponse{
			ID:         t.ID,
			SeatNumber: t.SeatNumber,
			FromStopID: t.FromStopID,
			ToStopID:   t.ToStopID,
			Status:     string(t.Status),
			Price:      t.Price.StringFixed(2),
		})
	}
	return out
}

type tripResponse struct {
	ID                 uint64    `json:"id"`
	BusID              uint64    `json:"bus_id"`
	RouteID            uint64    `json:"route_id"`
	Status             string    `json:"status"`
	Capacity           int       `json:"capacity"`
	OverbookingPercent int       `json:"overbooking_percent"`
	DepartsAt          time.Time `json:"departs_at"`
	ArrivesAt          time.Time `json:"arrives_at"`
}

func toTrip(t *model.Trip) tripResponse {
	return tripResponse{
		ID:                 t.ID,
		BusID:              t.BusID,
		RouteID:            t.RouteID,
		Status:             string(t.Status),
		Capacity:           t.Capacity,
		OverbookingPercent: t.OverbookingPercent,
		DepartsAt:          t.DepartsAt,
		ArrivesAt:          t.ArrivesAt,
	}
}

type stopResponse struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}
