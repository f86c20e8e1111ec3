package sampler

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/razor389/prop-simulator/internal/domain"
)

// Historical remuestrea el trade log con reemplazo.
//
// En modo day se sortea un día calendario completo y se devuelven sus trades
// en el orden del archivo. En modo trade se sortea cuántos trades tiene el día
// (de la distribución empírica de trades por día) y luego cada trade por separado.
type Historical struct {
	mode   domain.HistoricalMode
	days   [][]domain.TradeOutcome // escalados, solo lectura
	counts []int
	pool   []domain.TradeOutcome
}

// NewHistorical escala el log una sola vez; los trials comparten el resultado.
func NewHistorical(log *domain.TradeLog, mode domain.HistoricalMode, multiplier, roundTripCost float64) (*Historical, error) {
	if log.Empty() {
		return nil, fmt.Errorf("%w: trade log has no trades", domain.ErrConfiguration)
	}
	if mode == "" {
		mode = domain.HistoricalDay
	}
	if mode != domain.HistoricalDay && mode != domain.HistoricalTrade {
		return nil, fmt.Errorf("%w: unknown historical mode %q", domain.ErrConfiguration, mode)
	}

	h := &Historical{mode: mode}
	for _, d := range log.Days {
		if len(d.Trades) == 0 {
			continue
		}
		scaled := make([]domain.TradeOutcome, len(d.Trades))
		for i, raw := range d.Trades {
			scaled[i] = raw.Scale(multiplier, roundTripCost)
		}
		h.days = append(h.days, scaled)
		h.counts = append(h.counts, len(scaled))
		h.pool = append(h.pool, scaled...)
	}
	return h, nil
}

// Mode devuelve el modo de muestreo efectivo.
func (h *Historical) Mode() domain.HistoricalMode { return h.mode }

// NextDay implementa ports.TradeSource.
func (h *Historical) NextDay(rng *rand.Rand, _ int) (domain.SimDay, error) {
	if h.mode == domain.HistoricalTrade {
		n := h.counts[rng.IntN(len(h.counts))]
		trades := make([]domain.TradeOutcome, n)
		for i := range trades {
			trades[i] = h.pool[rng.IntN(len(h.pool))]
		}
		return domain.SimDay{Trades: trades}, nil
	}
	day := h.days[rng.IntN(len(h.days))]
	return domain.SimDay{Trades: slices.Clone(day)}, nil
}
