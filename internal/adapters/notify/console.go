package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/razor389/prop-simulator/internal/domain"
)

const histogramWidth = 40

// Console implementa ports.Notifier.
type Console struct {
	out       io.Writer
	histogram bool
	failures  int // cuántos errores de trial mostrar
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(histogram bool) *Console {
	return &Console{out: os.Stdout, histogram: histogram, failures: 5}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, histogram bool) *Console {
	return &Console{out: w, histogram: histogram, failures: 5}
}

// Notify imprime el resumen del run: estados finales, distribuciones y,
// si está activado, el histograma de balances.
func (c *Console) Notify(_ context.Context, run *domain.RunResult) error {
	if run == nil {
		fmt.Fprintf(c.out, "[%s] no run to report\n", time.Now().Format("15:04:05"))
		return nil
	}
	s := run.Summary

	fmt.Fprintf(c.out, "\n[%s] %s | %d/%d trials | seed %d | %v\n",
		run.StartedAt.Local().Format("15:04:05"), run.AccountType,
		run.Completed, run.Iterations, run.Seed, run.Duration.Round(time.Millisecond))
	fmt.Fprintf(c.out, "  run id: %s\n", run.RunID)
	if run.Cancelled {
		fmt.Fprintln(c.out, "  ⚠ run cancelled: partial results")
	}
	if run.FailedTrials > 0 {
		c.printFailures(run)
	}

	c.printEndStates(s)

	if s.NoMatchingTrials {
		fmt.Fprintf(c.out, "\n  No matching trials for condition %s\n\n", s.Condition)
		return nil
	}

	fmt.Fprintf(c.out, "\n── STATISTICS (condition: %s, %d trials) ──\n", s.Condition, s.MatchingTrials)
	c.printDistributions(s)

	fmt.Fprintf(c.out, "  Mean days:            %.2f\n", s.MeanDays)
	fmt.Fprintf(c.out, "  Mean payouts:         %.2f\n", s.MeanPayouts)
	fmt.Fprintf(c.out, "  Positive balance:     %.2f%%\n", s.PositiveBalancePct)
	fmt.Fprintf(c.out, "  Positive net payout:  %.2f%%\n", s.PositiveNetPayoutPct)

	if c.histogram && len(run.Histogram) > 0 {
		c.printHistogram(run.Histogram)
	}
	fmt.Fprintln(c.out)
	return nil
}

// printEndStates imprime el reparto de estados finales sobre todos los trials.
func (c *Console) printEndStates(s domain.Summary) {
	fmt.Fprintf(c.out, "\n── END STATES (%d trials) ──\n", s.TotalTrials)
	table := tablewriter.NewWriter(c.out)
	table.Header("End state", "Trials %")
	for _, st := range domain.EndStates {
		table.Append(string(st), fmt.Sprintf("%.2f%%", s.EndStatePercentages[st]))
	}
	table.Render()
}

// printDistributions imprime balance final y payout neto lado a lado.
func (c *Console) printDistributions(s domain.Summary) {
	b, n := s.Balance, s.NetPayout
	rows := []struct {
		name    string
		balance float64
		net     float64
	}{
		{"Mean", b.Mean, n.Mean},
		{"Median", b.Median, n.Median},
		{"Std dev", b.StdDev, n.StdDev},
		{"Mean abs dev (mean)", b.MeanAbsDev, n.MeanAbsDev},
		{"Mean abs dev (median)", b.MeanAbsDevMedian, n.MeanAbsDevMedian},
		{"Median abs dev", b.MedianAbsDev, n.MedianAbsDev},
		{"Q1", b.Q1, n.Q1},
		{"Q3", b.Q3, n.Q3},
		{"IQR", b.IQR, n.IQR},
		{"Min", b.Min, n.Min},
		{"Max", b.Max, n.Max},
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Final balance", "Net payout")
	for _, r := range rows {
		table.Append(r.name, money(r.balance), money(r.net))
	}
	table.Render()
}

// printHistogram dibuja los buckets con barras proporcionales al más alto.
func (c *Console) printHistogram(bins []domain.HistogramBin) {
	maxCount := 0
	for _, b := range bins {
		maxCount = max(maxCount, b.Count)
	}
	if maxCount == 0 {
		return
	}

	fmt.Fprintf(c.out, "\n── FINAL BALANCE HISTOGRAM (%d bins) ──\n", len(bins))
	for _, b := range bins {
		bar := strings.Repeat("█", b.Count*histogramWidth/maxCount)
		fmt.Fprintf(c.out, "  %12s %-*s %6.2f%%\n", money(b.Lower), histogramWidth, bar, b.Percent)
	}
}

func (c *Console) printFailures(run *domain.RunResult) {
	fmt.Fprintf(c.out, "  ⚠ %d trials failed and were excluded\n", run.FailedTrials)
	for i, f := range run.Failures {
		if i >= c.failures {
			break
		}
		fmt.Fprintf(c.out, "    trial %d: %s\n", f.Index, f.Err)
	}
}

// money formatea un importe con separador de miles: -1234.5 -> "-$1,234.50".
func money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	raw := fmt.Sprintf("%.2f", v)
	intPart, frac := raw[:len(raw)-3], raw[len(raw)-3:]

	var sb strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	return sign + "$" + sb.String() + frac
}
