package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razor389/prop-simulator/internal/domain"
)

func TestPrometheus_Counters(t *testing.T) {
	m := New()

	m.TrialFinished(domain.StatusBusted)
	m.TrialFinished(domain.StatusBusted)
	m.TrialFinished(domain.StatusTimedOut)
	m.TrialFailed()
	m.RunFinished("ok", 1500*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.TrialsTotal.WithLabelValues("Busted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TrialsTotal.WithLabelValues("TimedOut")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TrialFailures), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")), 0)
}

func TestPrometheus_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.TrialFailed()
	assert.InDelta(t, 0, testutil.ToFloat64(b.TrialFailures), 0)
}

func TestPrometheus_Handler(t *testing.T) {
	m := New()
	m.RunFinished("empty", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `propsim_engine_runs_total{result="empty"} 1`)
	assert.Contains(t, string(body), "propsim_engine_run_duration_seconds_bucket")
}
