package sampler

import (
	"fmt"
	"math"

	"github.com/razor389/prop-simulator/internal/domain"
	"github.com/razor389/prop-simulator/internal/ports"
)

// New construye la trade source de un run a partir de un TradeSourceSpec.
// Un trade log tiene prioridad sobre los parámetros sintéticos.
//
// Errores (todos ErrConfiguration): sin log ni parámetros, log vacío,
// modo histórico desconocido o parámetros sintéticos fuera de rango.
func New(spec domain.TradeSourceSpec, multiplier, roundTripCost float64) (ports.TradeSource, error) {
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return nil, fmt.Errorf("sampler.New: %w: multiplier must be a finite number > 0", domain.ErrConfiguration)
	}
	if roundTripCost < 0 || math.IsNaN(roundTripCost) || math.IsInf(roundTripCost, 0) {
		return nil, fmt.Errorf("sampler.New: %w: round_trip_cost must be a finite number >= 0", domain.ErrConfiguration)
	}

	switch {
	case spec.Log != nil:
		h, err := NewHistorical(spec.Log, spec.HistoricalMode, multiplier, roundTripCost)
		if err != nil {
			return nil, fmt.Errorf("sampler.New: %w", err)
		}
		return h, nil
	case spec.Synthetic != nil:
		s, err := NewSynthetic(*spec.Synthetic, multiplier, roundTripCost)
		if err != nil {
			return nil, fmt.Errorf("sampler.New: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("sampler.New: %w: either a trade log or synthetic bracket parameters are required", domain.ErrConfiguration)
	}
}
