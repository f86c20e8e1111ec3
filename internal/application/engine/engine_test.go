package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razor389/prop-simulator/internal/application/sampler"
	"github.com/razor389/prop-simulator/internal/domain"
	"github.com/razor389/prop-simulator/internal/ports"
)

// --- Fakes ---

type stubRegistry map[string]domain.AccountTypeParams

func (s stubRegistry) Lookup(key string) (domain.AccountTypeParams, error) {
	p, ok := s[key]
	if !ok {
		return domain.AccountTypeParams{}, fmt.Errorf("%w: %q", domain.ErrUnknownAccountType, key)
	}
	return p, nil
}

func (s stubRegistry) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type recordingMetrics struct {
	mu       sync.Mutex
	trials   map[domain.Status]int
	failures int
	runs     []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{trials: map[domain.Status]int{}}
}

func (m *recordingMetrics) TrialFinished(s domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trials[s]++
}

func (m *recordingMetrics) TrialFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *recordingMetrics) RunFinished(result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, result)
}

type memStorage struct {
	mu   sync.Mutex
	runs []*domain.RunResult
}

func (m *memStorage) SaveRun(_ context.Context, run *domain.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStorage) ListRuns(context.Context, int) ([]domain.RunResult, error) { return nil, nil }
func (m *memStorage) GetRun(context.Context, string) (*domain.RunResult, error) { return nil, nil }
func (m *memStorage) GetTrialOutcomes(context.Context, string) ([]domain.TrialOutcome, error) {
	return nil, nil
}
func (m *memStorage) Close() error { return nil }

func registry() stubRegistry {
	return stubRegistry{
		"demo:static10k": {
			Key: "demo:static10k", StartingBalance: 10_000, ProfitTarget: 1_000,
			DrawdownKind: domain.DrawdownStatic, DrawdownAmount: 2_000, MaxPayouts: 2, Cost: 100,
		},
		"demo:trailing10k": {
			Key: "demo:trailing10k", StartingBalance: 10_000, ProfitTarget: 1_000,
			DrawdownKind: domain.DrawdownTrailing, DrawdownAmount: 2_000, MaxPayouts: 2, Cost: 100,
		},
	}
}

func syntheticConfig() domain.SimulationConfig {
	return domain.SimulationConfig{
		Iterations:        2_000,
		MaxSimulationDays: 60,
		AccountType:       "demo:static10k",
		Multiplier:        1,
		Seed:              42,
		Workers:           4,
		Source: domain.TradeSourceSpec{Synthetic: &domain.SyntheticParams{
			AvgTradesPerDay:     3,
			StopLoss:            150,
			TakeProfit:          200,
			WinPercentage:       0.5,
			WinAdverseExcursion: 50,
		}},
	}
}

// --- Tests ---

func TestRun_DeterministicWithFixedSeed(t *testing.T) {
	r := New(registry(), nil, nil)

	cfg := syntheticConfig()
	first, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	cfg.Workers = 1
	second, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Outcomes, second.Outcomes)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestRun_EveryTrialEndsInOneTerminalState(t *testing.T) {
	r := New(registry(), nil, nil)
	res, err := r.Run(context.Background(), syntheticConfig())
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 2_000)
	assert.Equal(t, 2_000, res.Completed)
	assert.Zero(t, res.FailedTrials)
	for i, o := range res.Outcomes {
		assert.Equal(t, i, o.Index)
		assert.True(t, o.EndState.Terminal(), "trial %d: %s", i, o.EndState)
		assert.LessOrEqual(t, o.PayoutsTaken, 2)
		assert.LessOrEqual(t, o.DaysSurvived, 60)
		if o.EndState == domain.StatusMaxPayouts {
			assert.Equal(t, 2, o.PayoutsTaken)
		}
		if o.EndState == domain.StatusTimedOut {
			assert.Equal(t, 60, o.DaysSurvived)
		}
		assert.InDelta(t, o.TotalPayouts-100, o.NetPayout, 1e-9)
	}

	total := 0.0
	for _, pct := range res.Summary.EndStatePercentages {
		total += pct
	}
	assert.InDelta(t, 100, total, 1e-9)
}

func TestRun_DataErrorsIsolatedToTrial(t *testing.T) {
	day := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	log := &domain.TradeLog{Days: []domain.TradeDay{
		{ID: "2024-01-02", Trades: []domain.RawTrade{{Time: day, RealizedPnL: 10, AdverseExcursion: -5}}},
		{ID: "2024-01-03", Trades: []domain.RawTrade{{Time: day.AddDate(0, 0, 1), RealizedPnL: 10, AdverseExcursion: 5}}},
	}}
	cfg := syntheticConfig()
	cfg.Iterations = 200
	cfg.MaxSimulationDays = 1
	cfg.Source = domain.TradeSourceSpec{Log: log}

	m := newRecordingMetrics()
	r := New(registry(), nil, m)
	res, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Positive(t, res.FailedTrials)
	assert.Positive(t, res.Completed)
	assert.Equal(t, 200, res.Completed+res.FailedTrials)
	require.NotEmpty(t, res.Failures)
	assert.Contains(t, res.Failures[0].Err, "data error")
	assert.Equal(t, res.FailedTrials, m.failures)
	assert.Equal(t, []string{"ok"}, m.runs)
	assert.Equal(t, res.Completed, res.Summary.TotalTrials)
}

func TestRun_ConfigurationErrorsAreFatal(t *testing.T) {
	r := New(registry(), nil, nil)

	tests := []struct {
		name   string
		mutate func(*domain.SimulationConfig)
		want   error
	}{
		{"zero iterations", func(c *domain.SimulationConfig) { c.Iterations = 0 }, domain.ErrConfiguration},
		{"unknown account", func(c *domain.SimulationConfig) { c.AccountType = "acme:huge" }, domain.ErrUnknownAccountType},
		{"no source", func(c *domain.SimulationConfig) { c.Source = domain.TradeSourceSpec{} }, domain.ErrConfiguration},
		{"bad win pct", func(c *domain.SimulationConfig) { c.Source.Synthetic.WinPercentage = 50 }, domain.ErrConfiguration},
		{"bad condition", func(c *domain.SimulationConfig) { c.ConditionEndState = "rich" }, domain.ErrConfiguration},
		{"nan stop loss", func(c *domain.SimulationConfig) { c.Source.Synthetic.StopLoss = math.NaN() }, domain.ErrConfiguration},
		{"inf take profit", func(c *domain.SimulationConfig) { c.Source.Synthetic.TakeProfit = math.Inf(1) }, domain.ErrConfiguration},
		{"nan round trip cost", func(c *domain.SimulationConfig) { c.RoundTripCost = math.NaN() }, domain.ErrConfiguration},
		{"nan daily stop", func(c *domain.SimulationConfig) { c.Limits.DailyStopLoss = math.NaN() }, domain.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := syntheticConfig()
			syn := *cfg.Source.Synthetic
			cfg.Source.Synthetic = &syn
			tt.mutate(&cfg)

			res, err := r.Run(context.Background(), cfg)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, domain.IsFatal(err))
		})
	}
}

func TestRun_EmptyFilterIsNotFatal(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Iterations = 100
	cfg.ConditionEndState = "MaxPayouts"
	cfg.Source.Synthetic = &domain.SyntheticParams{AvgTradesPerDay: 2, StopLoss: 100, TakeProfit: 100, WinPercentage: 0}

	m := newRecordingMetrics()
	res, err := New(registry(), nil, m).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, IsEmptyResult(err))
	assert.False(t, domain.IsFatal(err))
	require.NotNil(t, res)
	assert.True(t, res.Summary.NoMatchingTrials)
	assert.InDelta(t, 100, res.Summary.EndStatePercentages[domain.StatusBusted], 1e-9)
	assert.Equal(t, []string{"empty"}, m.runs)
}

func TestRun_CancelledContextStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(registry(), nil, nil).Run(ctx, syntheticConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
	assert.True(t, res.Cancelled)
	assert.Zero(t, res.Completed)
}

func TestRun_SavesToStorageAndBuildsHistogram(t *testing.T) {
	store := &memStorage{}
	cfg := syntheticConfig()
	cfg.Iterations = 300
	cfg.HistogramBins = 10

	res, err := New(registry(), store, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, store.runs, 1)
	assert.Equal(t, res.RunID, store.runs[0].RunID)
	assert.Equal(t, uint64(42), res.Seed)
	assert.NotEmpty(t, res.Histogram)
	assert.Len(t, res.FinalBalances, 300)

	count := 0
	for _, b := range res.Histogram {
		count += b.Count
	}
	assert.Equal(t, 300, count)
}

func TestRun_PicksSeedWhenZero(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Iterations = 10
	cfg.Seed = 0

	res, err := New(registry(), nil, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotZero(t, res.Seed)
}

func TestRunTrial_ReproducibleByIndex(t *testing.T) {
	cfg := syntheticConfig()
	p, _ := registry().Lookup(cfg.AccountType)
	rules, err := domain.NewRules(p, cfg.MaxSimulationDays, 0)
	require.NoError(t, err)

	full, err := New(registry(), nil, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	src := mustSource(t, cfg)
	for _, idx := range []int{0, 17, 1_999} {
		got, err := RunTrial(idx, rules, src, cfg.Limits, TrialRNG(cfg.Seed, idx))
		require.NoError(t, err)
		assert.Equal(t, full.Outcomes[idx], got)
	}
}

// flatSource devuelve días vacíos y registra qué días se pidieron.
type flatSource struct {
	days []int
}

func (f *flatSource) NextDay(_ *rand.Rand, day int) (domain.SimDay, error) {
	f.days = append(f.days, day)
	return domain.SimDay{}, nil
}

func TestRunTrial_StopsAtMaxSimulationDays(t *testing.T) {
	p, _ := registry().Lookup("demo:static10k")
	rules, err := domain.NewRules(p, 7, 0)
	require.NoError(t, err)

	src := &flatSource{}
	got, err := RunTrial(3, rules, src, domain.DailyLimits{}, TrialRNG(1, 3))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, src.days)
	assert.Equal(t, domain.StatusTimedOut, got.EndState)
	assert.Equal(t, 7, got.DaysSurvived)
	assert.Equal(t, 3, got.Index)
}

func TestRunTrial_HardStopWithoutTimeoutTransition(t *testing.T) {
	p, _ := registry().Lookup("demo:static10k")
	// sin pasar por NewRules: Advance nunca llega a forzar el timeout
	rules := domain.Rules{Params: p, MaxPayouts: p.MaxPayouts, MaxSimulationDays: 0}

	src := &flatSource{}
	got, err := RunTrial(0, rules, src, domain.DailyLimits{}, TrialRNG(1, 0))
	require.NoError(t, err)

	assert.Empty(t, src.days)
	assert.Equal(t, domain.StatusTimedOut, got.EndState)
	assert.Zero(t, got.DaysSurvived)
	assert.InDelta(t, p.StartingBalance, got.FinalBalance, 1e-9)
}

func TestSweep(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Iterations = 200

	results, err := New(registry(), nil, nil).Sweep(context.Background(), cfg, []string{"demo:trailing10k", "demo:static10k"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "demo:trailing10k", results[0].AccountType)
	assert.Equal(t, "demo:static10k", results[1].AccountType)

	_, err = New(registry(), nil, nil).Sweep(context.Background(), cfg, []string{"demo:static10k", "nope:nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownAccountType)

	_, err = New(registry(), nil, nil).Sweep(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func mustSource(t *testing.T, cfg domain.SimulationConfig) ports.TradeSource {
	t.Helper()
	src, err := sampler.New(cfg.Source, cfg.Multiplier, cfg.RoundTripCost)
	require.NoError(t, err)
	return src
}
