package domain

import "fmt"

// DailyLimits son reglas de disciplina del trader dentro de un día.
// Se aplican al SimDay antes de que la cuenta lo procese.
type DailyLimits struct {
	MaxTradesPerDay   int     // 0 = sin límite
	DailyProfitTarget float64 // > 0 para activar
	DailyStopLoss     float64 // < 0 para activar
}

// Validate checks sign conventions.
func (l DailyLimits) Validate() error {
	if l.MaxTradesPerDay < 0 {
		return fmt.Errorf("%w: max_trades_per_day must be >= 0", ErrConfiguration)
	}
	if !finite(l.DailyProfitTarget) || !finite(l.DailyStopLoss) {
		return fmt.Errorf("%w: daily_profit_target and daily_stop_loss must be finite", ErrConfiguration)
	}
	if l.DailyProfitTarget < 0 {
		return fmt.Errorf("%w: daily_profit_target must be >= 0", ErrConfiguration)
	}
	if l.DailyStopLoss > 0 {
		return fmt.Errorf("%w: daily_stop_loss must be <= 0", ErrConfiguration)
	}
	return nil
}

// Active reports whether any limit is configured.
func (l DailyLimits) Active() bool {
	return l.MaxTradesPerDay > 0 || l.DailyProfitTarget > 0 || l.DailyStopLoss < 0
}

// Apply recorta el día según los límites:
//   - corta tras MaxTradesPerDay trades;
//   - el trade que cruza el stop diario (por cierre o por excursión) sale
//     exactamente en el stop y termina el día;
//   - el trade cuyo cierre cruza el objetivo diario sale exactamente en el
//     objetivo y termina el día.
//
// Devuelve un SimDay nuevo; el original no se modifica.
func (l DailyLimits) Apply(day SimDay) SimDay {
	if !l.Active() {
		return day
	}

	out := make([]TradeOutcome, 0, len(day.Trades))
	pnl := 0.0
	for _, t := range day.Trades {
		if l.MaxTradesPerDay > 0 && len(out) >= l.MaxTradesPerDay {
			break
		}
		if l.DailyStopLoss < 0 && pnl+t.Trough() <= l.DailyStopLoss {
			exit := l.DailyStopLoss - pnl
			out = append(out, TradeOutcome{RealizedPnL: exit, AdverseExcursion: exit})
			break
		}
		if l.DailyProfitTarget > 0 && pnl+t.RealizedPnL >= l.DailyProfitTarget {
			t.RealizedPnL = l.DailyProfitTarget - pnl
			out = append(out, t)
			break
		}
		pnl += t.RealizedPnL
		out = append(out, t)
	}
	return SimDay{Trades: out}
}
