// Package advisor wraps the external decision oracle consulted for each
// evaluated symbol. The oracle is advisory, not authoritative: the
// simulation engine applies its own guardrails to whatever comes back,
// and any advisor failure degrades to HOLD at the call site.
package advisor

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Decision is the advisory verdict, normalized to uppercase.
type Decision string

const (
	Buy  Decision = "BUY"
	Sell Decision = "SELL"
	Hold Decision = "HOLD"
)

// Verdict is the oracle's answer for one symbol.
type Verdict struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
}

// PositionContext describes the currently held position, if any.
type PositionContext struct {
	Qty      decimal.Decimal
	AvgPrice decimal.Decimal
}

// Request carries everything the oracle sees about one symbol.
type Request struct {
	Symbol       string
	Price        decimal.Decimal
	PctChange    float64
	Headlines    []string // Up to 3 recent headlines; empty means no news
	WorldContext string   // Macro/politics free text, may be empty
	Position     *PositionContext
}

// Advisor is the decision oracle capability. Implementations may fail or
// return garbage; callers own the fallback.
type Advisor interface {
	Decide(ctx context.Context, req Request) (Verdict, error)
}

// ErrNotConfigured is returned by Disabled for every request.
var ErrNotConfigured = errors.New("advisor not configured")

// Disabled is the no-op Advisor used when no API key is set. Every
// Decide call errors, which the engine maps to HOLD.
type Disabled struct{}

var _ Advisor = Disabled{}

func (Disabled) Decide(ctx context.Context, req Request) (Verdict, error) {
	return Verdict{}, ErrNotConfigured
}
