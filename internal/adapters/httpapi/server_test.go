package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razor389/prop-simulator/internal/adapters/httpapi"
	"github.com/razor389/prop-simulator/internal/adapters/registry"
	"github.com/razor389/prop-simulator/internal/adapters/storage"
	"github.com/razor389/prop-simulator/internal/application/engine"
	"github.com/razor389/prop-simulator/internal/domain"
	"github.com/razor389/prop-simulator/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeSim guarda el último config recibido.
type fakeSim struct {
	last domain.SimulationConfig
	res  *domain.RunResult
	err  error
}

func (f *fakeSim) Run(_ context.Context, cfg domain.SimulationConfig) (*domain.RunResult, error) {
	f.last = cfg
	if f.res == nil {
		f.res = &domain.RunResult{RunID: "fake", AccountType: cfg.AccountType, Iterations: cfg.Iterations}
	}
	return f.res, f.err
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New()
	require.NoError(t, err)
	return reg
}

func newServer(t *testing.T, cfg httpapi.Config, sim httpapi.Simulator, store ports.Storage) http.Handler {
	t.Helper()
	return httpapi.New(cfg, sim, newRegistry(t), store, nil).Handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func syntheticRequest() map[string]any {
	return map[string]any{
		"iterations":          200,
		"max_simulation_days": 30,
		"account_type":        "demo:static10k",
		"seed":                7,
		"avg_trades_per_day":  4,
		"stop_loss":           100,
		"take_profit":         150,
		"win_percentage":      0.5,
	}
}

func TestHealthz(t *testing.T) {
	h := newServer(t, httpapi.Config{}, &fakeSim{}, nil)
	w := get(h, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestAccounts(t *testing.T) {
	h := newServer(t, httpapi.Config{}, &fakeSim{}, nil)
	w := get(h, "/accounts")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Accounts []string `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Accounts, "demo:static10k")
	assert.Contains(t, body.Accounts, "ftt:rally")
}

func TestSimulate_SyntheticEndToEnd(t *testing.T) {
	runner := engine.New(newRegistry(t), nil, nil)
	h := newServer(t, httpapi.Config{}, runner, nil)

	req := syntheticRequest()
	req["histogram"] = true
	req["histogram_bins"] = 10
	w := postJSON(t, h, "/simulate", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run httpapi.RunDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, 200, run.Completed)
	assert.Equal(t, uint64(7), run.Seed)
	assert.Len(t, run.Summary.EndStatePercentages, 3)
	assert.Len(t, run.Histogram, 10)
	assert.Empty(t, run.FinalBalances)

	total := 0.0
	for _, pct := range run.Summary.EndStatePercentages {
		total += pct
	}
	assert.InDelta(t, 100, total, 1e-9)
}

func TestSimulate_ErrorMapping(t *testing.T) {
	runner := engine.New(newRegistry(t), nil, nil)
	h := newServer(t, httpapi.Config{MaxIterations: 1000}, runner, nil)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   int
	}{
		{"unknown account", func(r map[string]any) { r["account_type"] = "nope:nothing" }, http.StatusBadRequest},
		{"zero iterations", func(r map[string]any) { r["iterations"] = 0 }, http.StatusBadRequest},
		{"over server limit", func(r map[string]any) { r["iterations"] = 5000 }, http.StatusBadRequest},
		{"bad condition", func(r map[string]any) { r["condition_end_state"] = "Sideways" }, http.StatusBadRequest},
		{"no trade source", func(r map[string]any) {
			delete(r, "avg_trades_per_day")
			delete(r, "stop_loss")
			delete(r, "take_profit")
			delete(r, "win_percentage")
		}, http.StatusBadRequest},
		{"bad csv", func(r map[string]any) { r["csv_data"] = "20240102 09:30:00,abc,-1\n20240102 09:31:00,oops,-1\n" }, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := syntheticRequest()
			tt.mutate(req)
			w := postJSON(t, h, "/simulate", req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestSimulate_MalformedJSON(t *testing.T) {
	h := newServer(t, httpapi.Config{}, &fakeSim{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/simulate", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulate_CSVDataBuildsHistoricalSource(t *testing.T) {
	sim := &fakeSim{}
	h := newServer(t, httpapi.Config{}, sim, nil)

	req := map[string]any{
		"iterations":          10,
		"max_simulation_days": 5,
		"account_type":        "demo:static10k",
		"multiplier":          50,
		"historical_mode":     "trade",
		"csv_data":            "datetime,realized,adverse\n20240102 09:30:00,2,-1\n20240103 09:30:00,-1,-1.5\n",
	}
	w := postJSON(t, h, "/simulate", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NotNil(t, sim.last.Source.Log)
	assert.Len(t, sim.last.Source.Log.Days, 2)
	assert.Equal(t, domain.HistoricalTrade, sim.last.Source.HistoricalMode)
	assert.Nil(t, sim.last.Source.Synthetic)
	assert.Equal(t, 50.0, sim.last.Multiplier)
	assert.Zero(t, sim.last.HistogramBins)
}

func TestSimulate_Multipart(t *testing.T) {
	sim := &fakeSim{}
	h := newServer(t, httpapi.Config{}, sim, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("config", `{"iterations":5,"max_simulation_days":3,"account_type":"ftt:rally","histogram":true}`))
	fw, err := mw.CreateFormFile("csv_file", "trades.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("20240102 09:30:00,2,-1\n20240102 10:30:00,1,0\n20240105 09:30:00,-3,-3\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/simulate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "ftt:rally", sim.last.AccountType)
	assert.Equal(t, 1.0, sim.last.Multiplier)
	require.NotNil(t, sim.last.Source.Log)
	require.Len(t, sim.last.Source.Log.Days, 2)
	assert.Len(t, sim.last.Source.Log.Days[0].Trades, 2)
	assert.Greater(t, sim.last.HistogramBins, 0)
}

func TestSimulate_MultipartWithoutConfig(t *testing.T) {
	h := newServer(t, httpapi.Config{}, &fakeSim{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/simulate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulate_EmptyFilterStillReturnsSummary(t *testing.T) {
	sim := &fakeSim{
		res: &domain.RunResult{
			RunID:   "empty",
			Summary: domain.Summary{Condition: "MaxPayoutsReached", TotalTrials: 10, NoMatchingTrials: true},
		},
		err: fmt.Errorf("engine.Run: %w", domain.ErrEmptyResult),
	}
	h := newServer(t, httpapi.Config{}, sim, nil)

	w := postJSON(t, h, "/simulate", syntheticRequest())
	require.Equal(t, http.StatusOK, w.Code)

	var run httpapi.RunDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.True(t, run.Summary.NoMatchingTrials)
	assert.Equal(t, 10, run.Summary.TotalTrials)
}

func TestSimulate_RateLimited(t *testing.T) {
	h := newServer(t, httpapi.Config{RatePerSec: 0.001, Burst: 1}, &fakeSim{}, nil)

	first := postJSON(t, h, "/simulate", syntheticRequest())
	assert.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, h, "/simulate", syntheticRequest())
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// el límite solo aplica a /simulate
	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
}

func TestRuns_StorageDisabled(t *testing.T) {
	h := newServer(t, httpapi.Config{}, &fakeSim{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/runs").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/runs/abc").Code)
}

func TestRuns_PersistedRunsAreQueryable(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runner := engine.New(newRegistry(t), store, nil)
	h := newServer(t, httpapi.Config{}, runner, store)

	req := syntheticRequest()
	req["iterations"] = 25
	w := postJSON(t, h, "/simulate", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run httpapi.RunDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	require.NotEmpty(t, run.RunID)

	w = get(h, "/runs?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Runs []httpapi.RunDTO `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, run.RunID, list.Runs[0].RunID)

	w = get(h, "/runs/"+run.RunID)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(h, "/runs/"+run.RunID+"/trials")
	require.Equal(t, http.StatusOK, w.Code)
	var trials struct {
		Trials []httpapi.TrialDTO `json:"trials"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trials))
	assert.Len(t, trials.Trials, 25)

	assert.Equal(t, http.StatusNotFound, get(h, "/runs/does-not-exist").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/runs/does-not-exist/trials").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/runs?limit=-1").Code)
}
