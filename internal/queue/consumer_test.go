package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlePurchaseConfirmed(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("", dir)

	body, err := json.Marshal(PurchaseConfirmedEvent{
		PurchaseID: 3, TripID: 9, HolderID: 7, Total: "150.00",
		Tickets: []TicketLine{
			{TicketID: 20, SeatNumber: "1A", FromStopID: 100, ToStopID: 102, Price: "50.00"},
			{TicketID: 21, SeatNumber: "1B", FromStopID: 100, ToStopID: 104, Price: "100.00"},
		},
		ConfirmedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, c.Handle(PurchaseConfirmedQueue, body))
	require.NoError(t, c.Handle(PurchaseConfirmedQueue, body))

	out, err := os.ReadFile(filepath.Join(dir, "purchase.log"))
	require.NoError(t, err)
	line := "[2026-03-02T08:00:00Z] Purchase confirmed | purchase_id=3 | holder_id=7 | trip_id=9 | total=150.00 | seats=[1A(100->102),1B(100->104)]\n"
	assert.Equal(t, line+line, string(out))
}

func TestHandleHoldsExpired(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("", dir)

	body, err := json.Marshal(HoldsExpiredEvent{
		Holds:   []ExpiredHold{{HoldID: 5, TripID: 9, SeatNumber: "2A", HolderID: 1}},
		SweptAt: time.Date(2026, 3, 2, 8, 1, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, c.Handle(HoldsExpiredQueue, body))

	out, err := os.ReadFile(filepath.Join(dir, "holds.log"))
	require.NoError(t, err)
	assert.Equal(t, "[2026-03-02T08:01:00Z] Holds expired | count=1 | holds=[5:2A@9]\n", string(out))
}

func TestHandleRejectsBadInput(t *testing.T) {
	c := NewConsumer("", t.TempDir())
	assert.Error(t, c.Handle(PurchaseConfirmedQueue, []byte("{")))
	assert.Error(t, c.Handle("seat.map", []byte("{}")))
}
