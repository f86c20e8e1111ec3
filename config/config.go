package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/razor389/prop-simulator/internal/domain"
)

// Config es la configuración completa del simulador.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Registry   RegistryConfig   `yaml:"registry"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// SimulationConfig son los valores por defecto de un run; los flags de la CLI
// y el body de /simulate los pisan.
type SimulationConfig struct {
	Iterations        int             `yaml:"iterations"`
	MaxSimulationDays int             `yaml:"max_simulation_days"`
	AccountType       string          `yaml:"account_type"`
	Multiplier        float64         `yaml:"multiplier"`
	MaxPayouts        int             `yaml:"max_payouts"` // 0 = el del tipo de cuenta
	ConditionEndState string          `yaml:"condition_end_state"`
	Seed              uint64          `yaml:"seed"` // 0 = aleatorio
	Workers           int             `yaml:"workers"`
	RoundTripCost     float64         `yaml:"round_trip_cost"`
	CSVPath           string          `yaml:"csv_path"`
	HistoricalMode    string          `yaml:"historical_mode"` // day | trade
	HistogramBins     int             `yaml:"histogram_bins"`
	Synthetic         SyntheticConfig `yaml:"synthetic"`
	DailyLimits       LimitsConfig    `yaml:"daily_limits"`
}

// SyntheticConfig es el bracket sintético (si no hay csv_path).
type SyntheticConfig struct {
	AvgTradesPerDay     float64  `yaml:"avg_trades_per_day"`
	StopLoss            float64  `yaml:"stop_loss"`
	TakeProfit          float64  `yaml:"take_profit"`
	WinPercentage       *float64 `yaml:"win_percentage"` // [0, 1]
	WinAdverseExcursion float64  `yaml:"win_adverse_excursion"`
	RandomizeWinAdverse bool     `yaml:"randomize_win_adverse"`
}

// configured indica si hay algún parámetro sintético cargado.
func (s SyntheticConfig) configured() bool {
	return s.WinPercentage != nil || s.StopLoss != 0 || s.TakeProfit != 0 || s.AvgTradesPerDay != 0
}

// LimitsConfig son los límites diarios del trader.
type LimitsConfig struct {
	MaxTradesPerDay   int     `yaml:"max_trades_per_day"`
	DailyProfitTarget float64 `yaml:"daily_profit_target"`
	DailyStopLoss     float64 `yaml:"daily_stop_loss"` // negativo, p.ej. -500
}

// RegistryConfig apunta a un YAML extra de tipos de cuenta.
type RegistryConfig struct {
	Path string `yaml:"path"` // vacío = solo el registry embebido
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN        string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
	Disabled   bool   `yaml:"disabled"`
	SaveTrials bool   `yaml:"save_trials"`
}

// ServerConfig controla el API HTTP.
type ServerConfig struct {
	Addr          string  `yaml:"addr"`
	RatePerSec    float64 `yaml:"rate_per_sec"`
	Burst         int     `yaml:"burst"`
	MaxIterations int     `yaml:"max_iterations"`
	MaxUploadMB   int     `yaml:"max_upload_mb"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Con path vacío solo se aplican entorno y defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// ToDomain arma el config del engine. log es el trade log ya cargado de
// CSVPath, o nil para usar el bracket sintético.
func (s SimulationConfig) ToDomain(log *domain.TradeLog) domain.SimulationConfig {
	cfg := domain.SimulationConfig{
		Iterations:         s.Iterations,
		MaxSimulationDays:  s.MaxSimulationDays,
		AccountType:        s.AccountType,
		Multiplier:         s.Multiplier,
		MaxPayoutsOverride: s.MaxPayouts,
		ConditionEndState:  s.ConditionEndState,
		Seed:               s.Seed,
		Workers:            s.Workers,
		RoundTripCost:      s.RoundTripCost,
		HistogramBins:      s.HistogramBins,
		Limits: domain.DailyLimits{
			MaxTradesPerDay:   s.DailyLimits.MaxTradesPerDay,
			DailyProfitTarget: s.DailyLimits.DailyProfitTarget,
			DailyStopLoss:     s.DailyLimits.DailyStopLoss,
		},
	}

	switch {
	case log != nil:
		cfg.Source = domain.TradeSourceSpec{Log: log, HistoricalMode: domain.HistoricalMode(s.HistoricalMode)}
	case s.Synthetic.configured():
		syn := &domain.SyntheticParams{
			AvgTradesPerDay:     s.Synthetic.AvgTradesPerDay,
			StopLoss:            s.Synthetic.StopLoss,
			TakeProfit:          s.Synthetic.TakeProfit,
			WinAdverseExcursion: s.Synthetic.WinAdverseExcursion,
			RandomizeWinAdverse: s.Synthetic.RandomizeWinAdverse,
		}
		if s.Synthetic.WinPercentage != nil {
			syn.WinPercentage = *s.Synthetic.WinPercentage
		}
		cfg.Source = domain.TradeSourceSpec{Synthetic: syn}
	}
	return cfg
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PROPSIM_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PROPSIM_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PROPSIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config.Load: PROPSIM_SEED: %w", err)
		}
		cfg.Simulation.Seed = seed
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	sim := &cfg.Simulation
	if sim.Iterations <= 0 {
		sim.Iterations = 10_000
	}
	if sim.MaxSimulationDays <= 0 {
		sim.MaxSimulationDays = 252 // un año de trading
	}
	if sim.AccountType == "" {
		sim.AccountType = "ftt:gt"
	}
	if sim.Multiplier <= 0 {
		sim.Multiplier = 1
	}
	if sim.ConditionEndState == "" {
		sim.ConditionEndState = "All"
	}
	if sim.HistoricalMode == "" {
		sim.HistoricalMode = string(domain.HistoricalDay)
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "propsim.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.RatePerSec <= 0 {
		cfg.Server.RatePerSec = 2
	}
	if cfg.Server.Burst <= 0 {
		cfg.Server.Burst = 4
	}
	if cfg.Server.MaxIterations <= 0 {
		cfg.Server.MaxIterations = 1_000_000
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
