package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/razor389/prop-simulator/config"
	"github.com/razor389/prop-simulator/internal/application/engine"
	"github.com/razor389/prop-simulator/internal/ports"
)

func runSweep(ctx context.Context, sim config.SimulationConfig, runner *engine.Runner, notifier ports.Notifier, list string, histogram bool) error {
	var keys []string
	for _, k := range strings.Split(list, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	cfg, err := buildConfig(sim, histogram)
	if err != nil {
		return err
	}
	if cfg.Seed == 0 {
		// misma semilla para todas las cuentas: compara reglas, no suerte
		cfg.Seed = engine.NewSeed()
	}

	results, err := runner.Sweep(ctx, cfg, keys)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	return notifier.NotifySweep(ctx, results)
}
