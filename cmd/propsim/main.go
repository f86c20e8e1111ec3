package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/razor389/prop-simulator/config"
	"github.com/razor389/prop-simulator/internal/adapters/metrics"
	"github.com/razor389/prop-simulator/internal/adapters/notify"
	"github.com/razor389/prop-simulator/internal/adapters/registry"
	"github.com/razor389/prop-simulator/internal/adapters/storage"
	"github.com/razor389/prop-simulator/internal/application/engine"
	"github.com/razor389/prop-simulator/internal/ports"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty = built-in defaults)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	serve := flag.Bool("serve", false, "start the HTTP API instead of running once")
	sweep := flag.String("sweep", "", "comma-separated account types to compare with the same config")
	history := flag.Bool("history", false, "print stored runs and exit")
	historyLimit := flag.Int("history-limit", 20, "number of runs shown by -history")
	listAccounts := flag.Bool("accounts", false, "list known account types and exit")
	histogram := flag.Bool("histogram", false, "print the final balance histogram")
	noStore := flag.Bool("no-store", false, "do not persist runs")
	sf := registerSimFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *noStore {
		cfg.Storage.Disabled = true
	}
	sf.apply(flag.CommandLine, &cfg.Simulation)
	setupLogger(cfg.Log)

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		slog.Error("failed to load account registry", "err", err, "path", cfg.Registry.Path)
		os.Exit(1)
	}
	if *listAccounts {
		printAccounts(reg)
		return
	}

	// interfaz nil (no *SQLiteStorage nil) si el storage está desactivado
	var store ports.Storage
	if !cfg.Storage.Disabled {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DSN, cfg.Storage.SaveTrials)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	prom := metrics.New()
	runner := engine.New(reg, store, prom)
	notifier := notify.NewConsole(*histogram)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *serve:
		err = runServe(ctx, cfg, runner, reg, store, prom)
	case *history:
		err = runHistory(ctx, store, notifier, *historyLimit)
	case *sweep != "":
		err = runSweep(ctx, cfg.Simulation, runner, notifier, *sweep, *histogram)
	default:
		err = runSimulation(ctx, cfg.Simulation, runner, notifier, *histogram)
	}
	if err != nil {
		slog.Error("propsim exited with error", "err", err)
		cancel()
		os.Exit(1)
	}
}

func printAccounts(reg *registry.Registry) {
	for _, key := range reg.Keys() {
		p, err := reg.Lookup(key)
		if err != nil {
			continue
		}
		slog.Info("account type",
			"key", key,
			"drawdown", p.DrawdownKind,
			"drawdown_amount", p.DrawdownAmount,
			"profit_target", p.ProfitTarget,
			"max_payouts", p.MaxPayouts,
			"cost", p.Cost,
		)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
