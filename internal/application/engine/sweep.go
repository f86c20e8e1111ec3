package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/razor389/prop-simulator/internal/domain"
)

// sweepParallelism es cuántos runs de un sweep corren a la vez. Cada run ya
// usa todos los cores, así que más solo suma memoria.
const sweepParallelism = 2

// Sweep corre el mismo config contra varios tipos de cuenta.
// Devuelve los resultados en el orden de accountTypes. Un error fatal en
// cualquier run cancela el resto; un filtro sin trials no lo es.
func (r *Runner) Sweep(ctx context.Context, cfg domain.SimulationConfig, accountTypes []string) ([]*domain.RunResult, error) {
	if len(accountTypes) == 0 {
		return nil, fmt.Errorf("engine.Sweep: %w: no account types", domain.ErrConfiguration)
	}

	results := make([]*domain.RunResult, len(accountTypes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)

	for i, key := range accountTypes {
		runCfg := cfg
		runCfg.AccountType = key
		g.Go(func() error {
			res, err := r.Run(gctx, runCfg)
			if err != nil && !IsEmptyResult(err) {
				return fmt.Errorf("engine.Sweep: %s: %w", key, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
