package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/razor389/prop-simulator/config"
	"github.com/razor389/prop-simulator/internal/adapters/tradelog"
	"github.com/razor389/prop-simulator/internal/application/engine"
	"github.com/razor389/prop-simulator/internal/application/stats"
	"github.com/razor389/prop-simulator/internal/domain"
	"github.com/razor389/prop-simulator/internal/ports"
)

// buildConfig carga el CSV (si hay) y arma el config del engine.
func buildConfig(sim config.SimulationConfig, histogram bool) (domain.SimulationConfig, error) {
	var log *domain.TradeLog
	if sim.CSVPath != "" {
		l, err := tradelog.Load(sim.CSVPath)
		if err != nil {
			return domain.SimulationConfig{}, err
		}
		slog.Info("trade log loaded", "path", sim.CSVPath, "days", len(l.Days), "trades", l.TradeCount())
		log = l
	}

	cfg := sim.ToDomain(log)
	if !histogram {
		cfg.HistogramBins = 0
	} else if cfg.HistogramBins <= 0 {
		cfg.HistogramBins = stats.DefaultBins
	}
	return cfg, nil
}

func runSimulation(ctx context.Context, sim config.SimulationConfig, runner *engine.Runner, notifier ports.Notifier, histogram bool) error {
	cfg, err := buildConfig(sim, histogram)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, cfg)
	if res != nil {
		if nerr := notifier.Notify(ctx, res); nerr != nil {
			slog.Warn("notifier error", "err", nerr)
		}
	}

	switch {
	case err == nil, engine.IsEmptyResult(err):
		return nil
	case errors.Is(err, context.Canceled) && res != nil:
		slog.Warn("simulation interrupted, partial results shown", "completed", res.Completed)
		return nil
	default:
		return fmt.Errorf("simulation failed: %w", err)
	}
}
