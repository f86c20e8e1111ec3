package notify_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/razor389/prop-simulator/internal/adapters/notify"
	"github.com/razor389/prop-simulator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRun(account string, empty bool) *domain.RunResult {
	return &domain.RunResult{
		RunID:        "3f2a9c1e-8b7d-4e2f-9a1b-123456789abc",
		AccountType:  account,
		Seed:         42,
		Iterations:   1000,
		Completed:    998,
		FailedTrials: 2,
		Failures:     []domain.TrialFailure{{Index: 17, Err: "trial 17 day 3: data error"}},
		StartedAt:    time.Now(),
		Duration:     850 * time.Millisecond,
		Summary: domain.Summary{
			Condition:        "All",
			TotalTrials:      998,
			MatchingTrials:   998,
			NoMatchingTrials: empty,
			Balance:          domain.Distribution{Count: 998, Mean: 10_234.5, Median: 9_876},
			NetPayout:        domain.Distribution{Count: 998, Mean: -12.25},
			MeanDays:         17.3,
			EndStatePercentages: map[domain.Status]float64{
				domain.StatusBusted:     61.5,
				domain.StatusTimedOut:   20,
				domain.StatusMaxPayouts: 18.5,
			},
			PositiveBalancePct:   100,
			PositiveNetPayoutPct: 18.5,
		},
		Histogram: []domain.HistogramBin{
			{Lower: 8_000, Upper: 9_000, Count: 600, Percent: 60.12},
			{Lower: 9_000, Upper: 10_000, Count: 398, Percent: 39.88},
		},
	}
}

func TestConsole_Notify_Summary(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.Notify(context.Background(), makeRun("demo:static10k", false)))

	out := buf.String()
	assert.Contains(t, out, "demo:static10k")
	assert.Contains(t, out, "998/1000 trials")
	assert.Contains(t, out, "Busted")
	assert.Contains(t, out, "61.50%")
	assert.Contains(t, out, "$10,234.50")
	assert.Contains(t, out, "-$12.25")
	assert.Contains(t, out, "trial 17")
	assert.Contains(t, out, "HISTOGRAM")
	assert.Contains(t, out, "60.12%")
}

func TestConsole_Notify_NoHistogramWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.Notify(context.Background(), makeRun("demo:static10k", false)))
	assert.NotContains(t, buf.String(), "HISTOGRAM")
}

func TestConsole_Notify_NoMatchingTrials(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	run := makeRun("demo:static10k", true)
	run.Summary.Condition = "MaxPayoutsReached"
	require.NoError(t, n.Notify(context.Background(), run))

	out := buf.String()
	assert.Contains(t, out, "No matching trials for condition MaxPayoutsReached")
	assert.NotContains(t, out, "STATISTICS")
}

func TestConsole_Notify_Nil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf, false).Notify(context.Background(), nil))
	assert.Contains(t, buf.String(), "no run to report")
}

func TestConsole_NotifySweep(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	runs := []*domain.RunResult{makeRun("ftt:rally", false), makeRun("topstep:fifty", true)}
	require.NoError(t, n.NotifySweep(context.Background(), runs))

	out := buf.String()
	assert.Contains(t, out, "ftt:rally")
	assert.Contains(t, out, "topstep:fifty")
	assert.Contains(t, out, "61.5%")
	assert.Equal(t, 2, strings.Count(out, "61.5%"))
}

func TestConsole_NotifyHistory(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.NotifyHistory(context.Background(), []domain.RunResult{*makeRun("ftt:gt", false)}))
	out := buf.String()
	assert.Contains(t, out, "3f2a9c1e")
	assert.NotContains(t, out, "3f2a9c1e-8b7d")
	assert.Contains(t, out, "998/1000")

	buf.Reset()
	require.NoError(t, n.NotifyHistory(context.Background(), nil))
	assert.Contains(t, buf.String(), "No stored runs")
}
