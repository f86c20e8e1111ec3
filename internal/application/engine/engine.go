package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/razor389/prop-simulator/internal/application/sampler"
	"github.com/razor389/prop-simulator/internal/application/stats"
	"github.com/razor389/prop-simulator/internal/domain"
	"github.com/razor389/prop-simulator/internal/ports"
)

// maxRecordedFailures limita cuántos errores de trial se guardan en el resultado.
const maxRecordedFailures = 20

// Runner orquesta un run de Monte Carlo: resuelve la cuenta, construye la
// trade source y reparte los trials en un worker pool.
type Runner struct {
	registry      ports.AccountRegistry
	storage       ports.Storage // opcional
	metrics       ports.Metrics // opcional
	progressEvery time.Duration
}

// New crea un Runner. storage y metrics pueden ser nil.
func New(registry ports.AccountRegistry, storage ports.Storage, metrics ports.Metrics) *Runner {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Runner{
		registry:      registry,
		storage:       storage,
		metrics:       metrics,
		progressEvery: 2 * time.Second,
	}
}

// trialResult es el slot de cada trial; se escribe una sola vez por su worker.
type trialResult struct {
	outcome domain.TrialOutcome
	err     error
	done    bool
}

// Run ejecuta cfg.Iterations trials en paralelo y agrega los resultados.
//
// Errores de configuración (ErrConfiguration, ErrUnknownAccountType) abortan
// antes de lanzar ningún trial. Los errores de datos solo marcan el trial como
// fallido. Si ctx se cancela se dejan de despachar trials, los que están en
// vuelo terminan y se devuelve el resultado parcial con Cancelled=true junto
// con el error del contexto. Si el filtro no deja trials se devuelve el
// resultado y un error que envuelve domain.ErrEmptyResult.
func (r *Runner) Run(ctx context.Context, cfg domain.SimulationConfig) (*domain.RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine.Run: %w", err)
	}
	params, err := r.registry.Lookup(cfg.AccountType)
	if err != nil {
		return nil, fmt.Errorf("engine.Run: %w", err)
	}
	rules, err := domain.NewRules(params, cfg.MaxSimulationDays, cfg.MaxPayoutsOverride)
	if err != nil {
		return nil, fmt.Errorf("engine.Run: %w", err)
	}
	src, err := sampler.New(cfg.Source, cfg.Multiplier, cfg.RoundTripCost)
	if err != nil {
		return nil, fmt.Errorf("engine.Run: %w", err)
	}
	filter, err := domain.ParseEndStateFilter(cfg.ConditionEndState)
	if err != nil {
		return nil, fmt.Errorf("engine.Run: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = NewSeed()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	res := &domain.RunResult{
		RunID:       uuid.New().String(),
		AccountType: params.Key,
		Seed:        seed,
		Iterations:  cfg.Iterations,
		StartedAt:   time.Now().UTC(),
	}

	slog.Info("simulation starting",
		"run_id", res.RunID,
		"account", params.Key,
		"iterations", cfg.Iterations,
		"seed", seed,
		"workers", workers,
	)

	results := r.dispatch(ctx, cfg, rules, src, seed, workers, res)
	res.Duration = time.Since(res.StartedAt)

	outcomes := make([]domain.TrialOutcome, 0, len(results))
	for i, tr := range results {
		if !tr.done {
			continue
		}
		if tr.err != nil {
			res.FailedTrials++
			r.metrics.TrialFailed()
			if len(res.Failures) < maxRecordedFailures {
				res.Failures = append(res.Failures, domain.TrialFailure{Index: i, Err: tr.err.Error()})
			}
			continue
		}
		r.metrics.TrialFinished(tr.outcome.EndState)
		outcomes = append(outcomes, tr.outcome)
	}
	res.Completed = len(outcomes)
	res.Outcomes = outcomes

	summary, sumErr := stats.Summarize(outcomes, filter)
	res.Summary = summary
	res.FinalBalances = stats.FilteredBalances(outcomes, filter)
	if cfg.HistogramBins > 0 {
		res.Histogram = stats.Histogram(res.FinalBalances, cfg.HistogramBins)
	}

	slog.Info("simulation finished",
		"run_id", res.RunID,
		"completed", res.Completed,
		"failed_trials", res.FailedTrials,
		"cancelled", res.Cancelled,
		"duration", res.Duration.Round(time.Millisecond),
	)

	if r.storage != nil {
		if err := r.storage.SaveRun(ctx, res); err != nil {
			slog.Warn("save run failed", "run_id", res.RunID, "err", err)
		}
	}

	switch {
	case res.Cancelled:
		r.metrics.RunFinished("cancelled", res.Duration)
		return res, fmt.Errorf("engine.Run: cancelled after %d trials: %w", res.Completed+res.FailedTrials, ctx.Err())
	case sumErr != nil:
		r.metrics.RunFinished("empty", res.Duration)
		return res, fmt.Errorf("engine.Run: %w", sumErr)
	default:
		r.metrics.RunFinished("ok", res.Duration)
		return res, nil
	}
}

// dispatch reparte los trials en un pool de tamaño fijo. Cada trial escribe
// solo en su slot de results, así que no hace falta lock para recolectar.
func (r *Runner) dispatch(
	ctx context.Context,
	cfg domain.SimulationConfig,
	rules domain.Rules,
	src ports.TradeSource,
	seed uint64,
	workers int,
	res *domain.RunResult,
) []trialResult {
	results := make([]trialResult, cfg.Iterations)
	pool := pond.New(workers, workers*4, pond.MinWorkers(workers))

	var finished atomic.Int64
	progress := rate.Sometimes{Interval: r.progressEvery}

	for i := 0; i < cfg.Iterations; i++ {
		if ctx.Err() != nil {
			res.Cancelled = true
			slog.Warn("simulation cancelled, draining in-flight trials",
				"run_id", res.RunID,
				"dispatched", i,
			)
			break
		}
		idx := i
		pool.Submit(func() {
			outcome, err := safeTrial(idx, rules, src, cfg.Limits, TrialRNG(seed, idx))
			if err != nil {
				slog.Warn("trial failed", "run_id", res.RunID, "trial", idx, "err", err)
			}
			results[idx] = trialResult{outcome: outcome, err: err, done: true}

			n := finished.Add(1)
			progress.Do(func() {
				slog.Info("simulation progress",
					"run_id", res.RunID,
					"finished", n,
					"total", cfg.Iterations,
				)
			})
		})
	}
	pool.StopAndWait()
	return results
}

// safeTrial convierte un panic dentro del trial en un error del trial.
func safeTrial(index int, rules domain.Rules, src ports.TradeSource, limits domain.DailyLimits, rng *rand.Rand) (out domain.TrialOutcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("trial %d: panic: %v", index, p)
		}
	}()
	return RunTrial(index, rules, src, limits, rng)
}

// IsEmptyResult indica si err solo reporta un filtro sin trials.
func IsEmptyResult(err error) bool {
	return errors.Is(err, domain.ErrEmptyResult)
}

type noopMetrics struct{}

func (noopMetrics) TrialFinished(domain.Status)       {}
func (noopMetrics) TrialFailed()                      {}
func (noopMetrics) RunFinished(string, time.Duration) {}
