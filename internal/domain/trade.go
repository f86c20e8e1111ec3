package domain

import (
	"fmt"
	"math"
	"time"
)

// TradeOutcome is one closed trade in currency units: the booked result and the
// worst equity dip seen before it posted (always <= 0).
type TradeOutcome struct {
	RealizedPnL      float64
	AdverseExcursion float64
}

// Validate rejects values the state machine cannot reason about.
func (t TradeOutcome) Validate() error {
	if math.IsNaN(t.RealizedPnL) || math.IsInf(t.RealizedPnL, 0) {
		return fmt.Errorf("%w: realized pnl %v is not finite", ErrData, t.RealizedPnL)
	}
	if math.IsNaN(t.AdverseExcursion) || math.IsInf(t.AdverseExcursion, 0) {
		return fmt.Errorf("%w: adverse excursion %v is not finite", ErrData, t.AdverseExcursion)
	}
	if t.AdverseExcursion > 0 {
		return fmt.Errorf("%w: adverse excursion %.4f must be <= 0", ErrData, t.AdverseExcursion)
	}
	return nil
}

// Trough returns the lowest P&L the trade reached, counting the close itself.
func (t TradeOutcome) Trough() float64 {
	return math.Min(t.AdverseExcursion, t.RealizedPnL)
}

// SimDay is the ordered list of trades for one simulated trading day.
// Order is chronological and matters for drawdown checks.
type SimDay struct {
	Trades []TradeOutcome
}

// PnL returns the sum of realized results for the day.
func (d SimDay) PnL() float64 {
	total := 0.0
	for _, t := range d.Trades {
		total += t.RealizedPnL
	}
	return total
}

// RawTrade is a trade log row before scaling by the multiplier.
type RawTrade struct {
	Time             time.Time
	RealizedPnL      float64 // instrument units
	AdverseExcursion float64 // instrument units, <= 0
}

// Scale converts a raw row into currency units, charging round-trip costs on
// both the close and the excursion.
func (r RawTrade) Scale(multiplier, roundTripCost float64) TradeOutcome {
	return TradeOutcome{
		RealizedPnL:      r.RealizedPnL*multiplier - roundTripCost,
		AdverseExcursion: r.AdverseExcursion*multiplier - roundTripCost,
	}
}

// TradeDay groups the trades of one calendar day, in file order.
type TradeDay struct {
	ID     string // YYYY-MM-DD
	Trades []RawTrade
}

// TradeLog is the ingested historical trade log, grouped by calendar day.
// Read-only once built; shared by every trial.
type TradeLog struct {
	Days []TradeDay
}

// TradeCount returns the total number of trades across all days.
func (l *TradeLog) TradeCount() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, d := range l.Days {
		n += len(d.Trades)
	}
	return n
}

// Empty reports whether the log has no trades at all.
func (l *TradeLog) Empty() bool {
	return l.TradeCount() == 0
}
