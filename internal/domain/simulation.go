package domain

import "fmt"

// HistoricalMode selects how a day is drawn from the trade log.
type HistoricalMode string

const (
	// HistoricalDay resamples one whole calendar day, keeping its order.
	HistoricalDay HistoricalMode = "day"
	// HistoricalTrade draws a day's trade count, then each trade independently.
	HistoricalTrade HistoricalMode = "trade"
)

// SyntheticParams configure bracket-order trade generation (instrument units).
type SyntheticParams struct {
	AvgTradesPerDay     float64
	StopLoss            float64
	TakeProfit          float64
	WinPercentage       float64 // [0, 1]
	WinAdverseExcursion float64 // magnitude of the dip before a win closes, 0 = unmodeled
	RandomizeWinAdverse bool    // normal(0.5*SL, 0.25*SL) dip capped at SL
}

// TradeSourceSpec picks the trade source for a run: a trade log or synthetic params.
type TradeSourceSpec struct {
	Log            *TradeLog
	HistoricalMode HistoricalMode
	Synthetic      *SyntheticParams
}

// SimulationConfig is the immutable input of a run, shared read-only by all trials.
type SimulationConfig struct {
	Iterations         int
	MaxSimulationDays  int
	AccountType        string
	Multiplier         float64
	MaxPayoutsOverride int // 0 = use the account type's value
	Source             TradeSourceSpec
	ConditionEndState  string // All | Busted | TimedOut | MaxPayouts
	Seed               uint64 // 0 = pick one at run start
	Workers            int    // 0 = runtime.NumCPU()
	RoundTripCost      float64
	Limits             DailyLimits
	HistogramBins      int // 0 = no histogram
}

// Validate checks the run-level ranges. Source-specific checks happen when the
// trade source is built.
func (c SimulationConfig) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be > 0", ErrConfiguration)
	}
	if c.MaxSimulationDays <= 0 {
		return fmt.Errorf("%w: max_simulation_days must be > 0", ErrConfiguration)
	}
	if c.AccountType == "" {
		return fmt.Errorf("%w: account_type is required", ErrConfiguration)
	}
	if c.Multiplier <= 0 || !finite(c.Multiplier) {
		return fmt.Errorf("%w: multiplier must be a positive number", ErrConfiguration)
	}
	if c.MaxPayoutsOverride < 0 {
		return fmt.Errorf("%w: max_payouts must be >= 0", ErrConfiguration)
	}
	if c.RoundTripCost < 0 || !finite(c.RoundTripCost) {
		return fmt.Errorf("%w: round_trip_cost must be a finite number >= 0", ErrConfiguration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrConfiguration)
	}
	if c.HistogramBins < 0 {
		return fmt.Errorf("%w: histogram bins must be >= 0", ErrConfiguration)
	}
	if _, err := ParseEndStateFilter(c.ConditionEndState); err != nil {
		return err
	}
	return c.Limits.Validate()
}

// TrialOutcome is the terminal snapshot of one trial.
type TrialOutcome struct {
	Index        int
	FinalBalance float64
	DaysSurvived int
	EndState     Status
	PayoutsTaken int
	TotalPayouts float64
	NetPayout    float64 // TotalPayouts - account cost
}

// NewTrialOutcome copies the terminal state into an outcome.
func NewTrialOutcome(index int, s AccountState, p AccountTypeParams) TrialOutcome {
	return TrialOutcome{
		Index:        index,
		FinalBalance: s.Balance,
		DaysSurvived: s.DaysElapsed,
		EndState:     s.Status,
		PayoutsTaken: s.PayoutsTaken,
		TotalPayouts: s.TotalPayouts,
		NetPayout:    s.TotalPayouts - p.Cost,
	}
}

// TrialFailure records a trial excluded from aggregation.
type TrialFailure struct {
	Index int
	Err   string
}
