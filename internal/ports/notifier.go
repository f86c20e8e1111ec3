package ports

import (
	"context"

	"github.com/razor389/prop-simulator/internal/domain"
)

// Notifier presenta los resultados de los runs al usuario.
type Notifier interface {
	// Notify muestra el resumen de un run.
	// En la implementación de consola, imprime tablas formateadas.
	Notify(ctx context.Context, run *domain.RunResult) error

	// NotifySweep compara varios runs del mismo config (uno por tipo de cuenta).
	NotifySweep(ctx context.Context, runs []*domain.RunResult) error

	// NotifyHistory lista runs guardados.
	NotifyHistory(ctx context.Context, runs []domain.RunResult) error
}
