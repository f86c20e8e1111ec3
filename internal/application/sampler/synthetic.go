package sampler

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/razor389/prop-simulator/internal/domain"
)

// Synthetic genera días con órdenes bracket: cantidad de trades Poisson y
// cada trade gana take_profit o pierde stop_loss de forma independiente.
type Synthetic struct {
	params        domain.SyntheticParams
	multiplier    float64
	roundTripCost float64
}

// NewSynthetic valida los parámetros del bracket.
func NewSynthetic(p domain.SyntheticParams, multiplier, roundTripCost float64) (*Synthetic, error) {
	// NaN pasa cualquier comparación de rango; se rechaza antes
	fields := []struct {
		name string
		v    float64
	}{
		{"win_percentage", p.WinPercentage},
		{"avg_trades_per_day", p.AvgTradesPerDay},
		{"stop_loss", p.StopLoss},
		{"take_profit", p.TakeProfit},
		{"win_adverse_excursion", p.WinAdverseExcursion},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return nil, fmt.Errorf("%w: %s %v is not a finite number", domain.ErrConfiguration, f.name, f.v)
		}
	}
	switch {
	case p.WinPercentage < 0 || p.WinPercentage > 1:
		return nil, fmt.Errorf("%w: win_percentage %v outside [0,1]", domain.ErrConfiguration, p.WinPercentage)
	case p.AvgTradesPerDay < 0:
		return nil, fmt.Errorf("%w: avg_trades_per_day must be >= 0", domain.ErrConfiguration)
	case p.StopLoss <= 0:
		return nil, fmt.Errorf("%w: stop_loss must be > 0", domain.ErrConfiguration)
	case p.TakeProfit <= 0:
		return nil, fmt.Errorf("%w: take_profit must be > 0", domain.ErrConfiguration)
	case p.WinAdverseExcursion < 0 || p.WinAdverseExcursion > p.StopLoss:
		return nil, fmt.Errorf("%w: win_adverse_excursion must be within [0, stop_loss]", domain.ErrConfiguration)
	}
	return &Synthetic{params: p, multiplier: multiplier, roundTripCost: roundTripCost}, nil
}

// NextDay implementa ports.TradeSource.
func (s *Synthetic) NextDay(rng *rand.Rand, _ int) (domain.SimDay, error) {
	n := poisson(rng, s.params.AvgTradesPerDay)
	trades := make([]domain.TradeOutcome, n)
	for i := range trades {
		trades[i] = s.trade(rng)
	}
	return domain.SimDay{Trades: trades}, nil
}

func (s *Synthetic) trade(rng *rand.Rand) domain.TradeOutcome {
	p := s.params
	if rng.Float64() < p.WinPercentage {
		return domain.RawTrade{
			RealizedPnL:      p.TakeProfit,
			AdverseExcursion: -s.winDip(rng),
		}.Scale(s.multiplier, s.roundTripCost)
	}
	// una pérdida toca el stop: la excursión es la pérdida completa
	return domain.RawTrade{
		RealizedPnL:      -p.StopLoss,
		AdverseExcursion: -p.StopLoss,
	}.Scale(s.multiplier, s.roundTripCost)
}

// winDip devuelve la magnitud del retroceso antes de que un ganador cierre.
// Modelo aleatorio: |N(0.5·SL, 0.25·SL)| con tope en SL.
func (s *Synthetic) winDip(rng *rand.Rand) float64 {
	p := s.params
	if !p.RandomizeWinAdverse {
		return p.WinAdverseExcursion
	}
	dip := math.Abs(0.5*p.StopLoss + 0.25*p.StopLoss*rng.NormFloat64())
	return math.Min(dip, p.StopLoss)
}

// poisson muestrea una Poisson(lambda). Knuth para lambdas chicas; para
// lambdas grandes la aproximación normal redondeada, nunca negativa.
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	if lambda > 30 {
		k := math.Round(lambda + math.Sqrt(lambda)*rng.NormFloat64())
		return int(math.Max(k, 0))
	}
	limit := math.Exp(-lambda)
	k := 0
	prod := rng.Float64()
	for prod > limit {
		k++
		prod *= rng.Float64()
	}
	return k
}
