package httpapi

import (
	"time"

	"github.com/razor389/prop-simulator/internal/domain"
)

// SimulateRequest es el cuerpo de POST /simulate. En multipart llega como el
// campo "config" (JSON) junto a un "csv_file" opcional.
type SimulateRequest struct {
	Iterations        int     `json:"iterations"`
	MaxSimulationDays int     `json:"max_simulation_days"`
	AccountType       string  `json:"account_type"`
	Multiplier        float64 `json:"multiplier"`
	MaxPayouts        int     `json:"max_payouts"`
	ConditionEndState string  `json:"condition_end_state"`
	Seed              uint64  `json:"seed"`
	RoundTripCost     float64 `json:"round_trip_cost"`
	HistoricalMode    string  `json:"historical_mode"`
	CSVData           string  `json:"csv_data"`
	Histogram         bool    `json:"histogram"`
	HistogramBins     int     `json:"histogram_bins"`
	IncludeBalances   bool    `json:"include_balances"`
	MaxTradesPerDay   int     `json:"max_trades_per_day"`
	DailyProfitTarget float64 `json:"daily_profit_target"`
	DailyStopLoss     float64 `json:"daily_stop_loss"`

	// Bracket sintético; se usa si no hay CSV.
	AvgTradesPerDay     float64  `json:"avg_trades_per_day"`
	StopLoss            float64  `json:"stop_loss"`
	TakeProfit          float64  `json:"take_profit"`
	WinPercentage       *float64 `json:"win_percentage"` // [0, 1]
	WinAdverseExcursion float64  `json:"win_adverse_excursion"`
	RandomizeWinAdverse bool     `json:"randomize_win_adverse"`
}

// toConfig convierte el request al config del engine. log puede ser nil.
func (r SimulateRequest) toConfig(log *domain.TradeLog, defaultBins int) domain.SimulationConfig {
	cfg := domain.SimulationConfig{
		Iterations:         r.Iterations,
		MaxSimulationDays:  r.MaxSimulationDays,
		AccountType:        r.AccountType,
		Multiplier:         r.Multiplier,
		MaxPayoutsOverride: r.MaxPayouts,
		ConditionEndState:  r.ConditionEndState,
		Seed:               r.Seed,
		RoundTripCost:      r.RoundTripCost,
		Limits: domain.DailyLimits{
			MaxTradesPerDay:   r.MaxTradesPerDay,
			DailyProfitTarget: r.DailyProfitTarget,
			DailyStopLoss:     r.DailyStopLoss,
		},
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 1
	}
	if r.Histogram {
		cfg.HistogramBins = r.HistogramBins
		if cfg.HistogramBins <= 0 {
			cfg.HistogramBins = defaultBins
		}
	}

	switch {
	case log != nil:
		cfg.Source = domain.TradeSourceSpec{Log: log, HistoricalMode: domain.HistoricalMode(r.HistoricalMode)}
	case r.WinPercentage != nil || r.StopLoss != 0 || r.TakeProfit != 0 || r.AvgTradesPerDay != 0:
		syn := &domain.SyntheticParams{
			AvgTradesPerDay:     r.AvgTradesPerDay,
			StopLoss:            r.StopLoss,
			TakeProfit:          r.TakeProfit,
			WinAdverseExcursion: r.WinAdverseExcursion,
			RandomizeWinAdverse: r.RandomizeWinAdverse,
		}
		if r.WinPercentage != nil {
			syn.WinPercentage = *r.WinPercentage
		}
		cfg.Source = domain.TradeSourceSpec{Synthetic: syn}
	}
	return cfg
}

// DistributionDTO es la versión JSON de domain.Distribution.
type DistributionDTO struct {
	Count            int     `json:"count"`
	Mean             float64 `json:"mean"`
	Median           float64 `json:"median"`
	StdDev           float64 `json:"std_dev"`
	MeanAbsDev       float64 `json:"mad"`
	MeanAbsDevMedian float64 `json:"mad_median"`
	MedianAbsDev     float64 `json:"median_abs_dev"`
	Q1               float64 `json:"q1"`
	Q3               float64 `json:"q3"`
	IQR              float64 `json:"iqr"`
	Min              float64 `json:"min"`
	Max              float64 `json:"max"`
}

// SummaryDTO es la versión JSON de domain.Summary.
type SummaryDTO struct {
	Condition                   string             `json:"condition"`
	TotalTrials                 int                `json:"total_trials"`
	MatchingTrials              int                `json:"matching_trials"`
	NoMatchingTrials            bool               `json:"no_matching_trials"`
	Balance                     DistributionDTO    `json:"balance"`
	NetPayout                   DistributionDTO    `json:"net_payout"`
	MeanDays                    float64            `json:"mean_days"`
	MeanPayouts                 float64            `json:"mean_payouts"`
	EndStatePercentages         map[string]float64 `json:"end_state_percentages"`
	PositiveBalancePercentage   float64            `json:"positive_balance_percentage"`
	PositiveNetPayoutPercentage float64            `json:"positive_net_payout_percentage"`
}

// BinDTO es un bucket del histograma.
type BinDTO struct {
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// FailureDTO describe un trial excluido.
type FailureDTO struct {
	Trial int    `json:"trial"`
	Error string `json:"error"`
}

// RunDTO es la respuesta de /simulate y de /runs.
type RunDTO struct {
	RunID         string       `json:"run_id"`
	AccountType   string       `json:"account_type"`
	Seed          uint64       `json:"seed"`
	Iterations    int          `json:"iterations"`
	Completed     int          `json:"completed"`
	FailedTrials  int          `json:"failed_trials"`
	Failures      []FailureDTO `json:"failures,omitempty"`
	Cancelled     bool         `json:"cancelled"`
	StartedAt     time.Time    `json:"started_at"`
	DurationMs    int64        `json:"duration_ms"`
	Summary       SummaryDTO   `json:"summary"`
	Histogram     []BinDTO     `json:"histogram,omitempty"`
	FinalBalances []float64    `json:"final_balances,omitempty"`
}

// TrialDTO es un outcome guardado.
type TrialDTO struct {
	Trial        int     `json:"trial"`
	FinalBalance float64 `json:"final_balance"`
	DaysSurvived int     `json:"days_survived"`
	EndState     string  `json:"end_state"`
	PayoutsTaken int     `json:"payouts_taken"`
	TotalPayouts float64 `json:"total_payouts"`
	NetPayout    float64 `json:"net_payout"`
}

func toDistributionDTO(d domain.Distribution) DistributionDTO {
	return DistributionDTO{
		Count:            d.Count,
		Mean:             d.Mean,
		Median:           d.Median,
		StdDev:           d.StdDev,
		MeanAbsDev:       d.MeanAbsDev,
		MeanAbsDevMedian: d.MeanAbsDevMedian,
		MedianAbsDev:     d.MedianAbsDev,
		Q1:               d.Q1,
		Q3:               d.Q3,
		IQR:              d.IQR,
		Min:              d.Min,
		Max:              d.Max,
	}
}

func toSummaryDTO(s domain.Summary) SummaryDTO {
	pcts := make(map[string]float64, len(s.EndStatePercentages))
	for st, v := range s.EndStatePercentages {
		pcts[string(st)] = v
	}
	return SummaryDTO{
		Condition:                   s.Condition,
		TotalTrials:                 s.TotalTrials,
		MatchingTrials:              s.MatchingTrials,
		NoMatchingTrials:            s.NoMatchingTrials,
		Balance:                     toDistributionDTO(s.Balance),
		NetPayout:                   toDistributionDTO(s.NetPayout),
		MeanDays:                    s.MeanDays,
		MeanPayouts:                 s.MeanPayouts,
		EndStatePercentages:         pcts,
		PositiveBalancePercentage:   s.PositiveBalancePct,
		PositiveNetPayoutPercentage: s.PositiveNetPayoutPct,
	}
}

func toRunDTO(r *domain.RunResult, includeBalances bool) RunDTO {
	dto := RunDTO{
		RunID:        r.RunID,
		AccountType:  r.AccountType,
		Seed:         r.Seed,
		Iterations:   r.Iterations,
		Completed:    r.Completed,
		FailedTrials: r.FailedTrials,
		Cancelled:    r.Cancelled,
		StartedAt:    r.StartedAt,
		DurationMs:   r.Duration.Milliseconds(),
		Summary:      toSummaryDTO(r.Summary),
	}
	for _, f := range r.Failures {
		dto.Failures = append(dto.Failures, FailureDTO{Trial: f.Index, Error: f.Err})
	}
	for _, b := range r.Histogram {
		dto.Histogram = append(dto.Histogram, BinDTO{Lower: b.Lower, Upper: b.Upper, Count: b.Count, Percent: b.Percent})
	}
	if includeBalances {
		dto.FinalBalances = r.FinalBalances
	}
	return dto
}

func toTrialDTOs(outcomes []domain.TrialOutcome) []TrialDTO {
	out := make([]TrialDTO, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, TrialDTO{
			Trial:        o.Index,
			FinalBalance: o.FinalBalance,
			DaysSurvived: o.DaysSurvived,
			EndState:     string(o.EndState),
			PayoutsTaken: o.PayoutsTaken,
			TotalPayouts: o.TotalPayouts,
			NetPayout:    o.NetPayout,
		})
	}
	return out
}
