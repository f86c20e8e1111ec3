package notify

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/razor389/prop-simulator/internal/domain"
)

// NotifySweep compara runs del mismo config sobre distintos tipos de cuenta.
func (c *Console) NotifySweep(_ context.Context, runs []*domain.RunResult) error {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "No sweep results")
		return nil
	}

	fmt.Fprintf(c.out, "\n── ACCOUNT SWEEP (%d accounts) ──\n", len(runs))
	table := tablewriter.NewWriter(c.out)
	table.Header("Account", "Trials", "Busted", "TimedOut", "MaxPayouts", "Mean bal", "Median bal", "Mean net", "Net > 0")
	for _, r := range runs {
		if r == nil {
			continue
		}
		s := r.Summary
		table.Append(
			r.AccountType,
			fmt.Sprintf("%d", r.Completed),
			pctLabel(s.EndStatePercentages[domain.StatusBusted]),
			pctLabel(s.EndStatePercentages[domain.StatusTimedOut]),
			pctLabel(s.EndStatePercentages[domain.StatusMaxPayouts]),
			orDash(s.NoMatchingTrials, money(s.Balance.Mean)),
			orDash(s.NoMatchingTrials, money(s.Balance.Median)),
			orDash(s.NoMatchingTrials, money(s.NetPayout.Mean)),
			orDash(s.NoMatchingTrials, pctLabel(s.PositiveNetPayoutPct)),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
	return nil
}

// NotifyHistory lista runs guardados, más recientes primero.
func (c *Console) NotifyHistory(_ context.Context, runs []domain.RunResult) error {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "No stored runs")
		return nil
	}

	fmt.Fprintf(c.out, "\n── RUN HISTORY (%d) ──\n", len(runs))
	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Started", "Account", "Condition", "Trials", "Failed", "Mean bal", "Busted", "Took")
	for _, r := range runs {
		s := r.Summary
		table.Append(
			shortID(r.RunID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.AccountType,
			s.Condition,
			fmt.Sprintf("%d/%d", r.Completed, r.Iterations),
			fmt.Sprintf("%d", r.FailedTrials),
			orDash(s.NoMatchingTrials, money(s.Balance.Mean)),
			pctLabel(s.EndStatePercentages[domain.StatusBusted]),
			r.Duration.String(),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
	return nil
}

func pctLabel(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func orDash(empty bool, s string) string {
	if empty {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
