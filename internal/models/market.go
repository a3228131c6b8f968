package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the per-symbol market view used by one simulation run:
// the latest trade price and the previous daily close.
type Snapshot struct {
	Symbol    string
	LastPrice decimal.Decimal
	PrevClose decimal.Decimal
}

// PctChange returns the 24h change in percent. Callers must skip the
// symbol when PrevClose is zero; this returns 0 in that case rather
// than dividing by zero.
func (s Snapshot) PctChange() float64 {
	if s.PrevClose.IsZero() {
		return 0
	}
	return s.LastPrice.Sub(s.PrevClose).Div(s.PrevClose).InexactFloat64() * 100
}

// Clock is the venue open/close status.
type Clock struct {
	Timestamp time.Time
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}

// Order is the broker's acknowledgement of a submitted market order.
type Order struct {
	ID        string
	Symbol    string
	Qty       decimal.Decimal
	Side      string // buy, sell
	Status    string // new, filled, canceled, rejected, ...
	CreatedAt time.Time
}
