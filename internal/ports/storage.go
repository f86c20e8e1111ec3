package ports

import (
	"context"

	"github.com/razor389/prop-simulator/internal/domain"
)

// Storage persiste los resultados de cada run de Monte Carlo.
type Storage interface {
	// SaveRun persiste el resumen del run y, si la implementación lo tiene
	// activado, los outcomes individuales.
	SaveRun(ctx context.Context, run *domain.RunResult) error

	// ListRuns devuelve los últimos runs (sin outcomes), más recientes primero.
	ListRuns(ctx context.Context, limit int) ([]domain.RunResult, error)

	// GetRun devuelve un run por ID. Los outcomes no se cargan.
	GetRun(ctx context.Context, runID string) (*domain.RunResult, error)

	// GetTrialOutcomes devuelve los outcomes guardados de un run, por índice.
	GetTrialOutcomes(ctx context.Context, runID string) ([]domain.TrialOutcome, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
