package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/razor389/prop-simulator/internal/domain"
	"github.com/razor389/prop-simulator/internal/ports"
)

// TrialRNG devuelve el stream aleatorio exclusivo del trial index.
// Mismo (seed, index) => misma secuencia, sin importar qué worker lo corra.
func TrialRNG(seed uint64, index int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(index)))
}

// NewSeed elige una semilla de run distinta de cero.
func NewSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

// RunTrial corre una vida completa de cuenta hasta un estado terminal.
// El loop nunca pasa de MaxSimulationDays aunque Advance no cierre la cuenta:
// en ese caso el trial termina como TimedOut con el estado alcanzado.
func RunTrial(index int, rules domain.Rules, src ports.TradeSource, limits domain.DailyLimits, rng *rand.Rand) (domain.TrialOutcome, error) {
	s := rules.Start()
	for day := 1; day <= rules.MaxSimulationDays; day++ {
		simDay, err := src.NextDay(rng, day)
		if err != nil {
			return domain.TrialOutcome{}, fmt.Errorf("trial %d day %d: %w", index, day, err)
		}
		next, step, err := rules.Advance(s, limits.Apply(simDay))
		if err != nil {
			return domain.TrialOutcome{}, fmt.Errorf("trial %d day %d: %w", index, day, err)
		}
		s = next
		if step.Terminal() {
			return domain.NewTrialOutcome(index, s, rules.Params), nil
		}
	}
	s.Status = domain.StatusTimedOut
	return domain.NewTrialOutcome(index, s, rules.Params), nil
}
