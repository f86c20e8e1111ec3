package ports

import (
	"time"

	"github.com/razor389/prop-simulator/internal/domain"
)

// Metrics recibe eventos del engine. Todas las llamadas deben ser seguras
// desde varios workers a la vez.
type Metrics interface {
	TrialFinished(state domain.Status)
	TrialFailed()
	RunFinished(result string, d time.Duration)
}
