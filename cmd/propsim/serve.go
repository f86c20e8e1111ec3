package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/razor389/prop-simulator/config"
	"github.com/razor389/prop-simulator/internal/adapters/httpapi"
	"github.com/razor389/prop-simulator/internal/adapters/metrics"
	"github.com/razor389/prop-simulator/internal/adapters/registry"
	"github.com/razor389/prop-simulator/internal/application/engine"
	"github.com/razor389/prop-simulator/internal/ports"
)

func runServe(ctx context.Context, cfg *config.Config, runner *engine.Runner, reg *registry.Registry, store ports.Storage, prom *metrics.Prometheus) error {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := httpapi.New(httpapi.Config{
		Addr:           cfg.Server.Addr,
		RatePerSec:     cfg.Server.RatePerSec,
		Burst:          cfg.Server.Burst,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		MaxIterations:  cfg.Server.MaxIterations,
	}, runner, reg, store, prom.Handler())
	return srv.Run(ctx)
}
