package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus enumerates purchase states.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseConfirmed PurchaseStatus = "CONFIRMED"
	PurchaseCancelled PurchaseStatus = "CANCELLED"
)

// Purchase groups the tickets a holder checks out together.  Its tickets
// are promoted to SOLD all at once or not at all.
//
// Fields:
//  ID        – primary key identifier.
//  TripID    – trip the tickets belong to.
//  HolderID  – purchasing user.
//  Status    – PENDING, CONFIRMED or CANCELLED.
//  Total     – sum of ticket prices.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Purchase struct {
	ID        uint64          // purchases.id
	TripID    uint64          // purchases.trip_id
	HolderID  uint64          // purchases.holder_id
	Status    PurchaseStatus  // purchases.status
	Total     decimal.Decimal // purchases.total
	CreatedAt time.Time       // purchases.created_at
	UpdatedAt time.Time       // purchases.updated_at
}
