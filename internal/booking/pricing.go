package booking

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// SettingBaseFare is the fare of a full-route ticket.
const SettingBaseFare = "fare.base"

// SegmentFare charges the base fare pro rata to the share of the route the
// segment covers, rounded to two decimals.
type SegmentFare struct {
	Config ConfigProvider
}

func (f SegmentFare) Price(ctx context.Context, _ *model.Trip, _ *model.Seat, seg model.Segment, totalLegs int) (decimal.Decimal, error) {
	base, err := f.Config.GetDecimal(ctx, SettingBaseFare)
	if err != nil {
		return decimal.Zero, err
	}
	if totalLegs <= 0 || seg.Legs() >= totalLegs {
		return base.Round(2), nil
	}
	return base.Mul(decimal.NewFromInt(int64(seg.Legs()))).
		Div(decimal.NewFromInt(int64(totalLegs))).
		Round(2), nil
}
