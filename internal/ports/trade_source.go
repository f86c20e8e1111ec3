package ports

import (
	"math/rand/v2"

	"github.com/razor389/prop-simulator/internal/domain"
)

// TradeSource produce los días de trading que consume un trial.
// Las implementaciones comparten estado de solo lectura entre trials; toda la
// aleatoriedad sale del rng del trial, así que son seguras para uso concurrente.
type TradeSource interface {
	// NextDay devuelve el día simulado número day (1-based) del trial.
	NextDay(rng *rand.Rand, day int) (domain.SimDay, error)
}
