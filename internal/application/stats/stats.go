package stats

import (
	"fmt"
	"math"
	"slices"

	"github.com/razor389/prop-simulator/internal/domain"
)

// Describe calcula el bloque de estadísticas de una serie.
// Ordena una copia antes de cualquier reducción, así el resultado no depende
// del orden de entrada (los trials terminan en cualquier orden).
// Una serie vacía devuelve la Distribution cero.
func Describe(values []float64) domain.Distribution {
	n := len(values)
	if n == 0 {
		return domain.Distribution{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean := sum(sorted) / float64(n)
	median := medianSorted(sorted)

	var sq, absMean, absMedian float64
	devs := make([]float64, n)
	for i, v := range sorted {
		d := v - mean
		sq += d * d
		absMean += math.Abs(d)
		absMedian += math.Abs(v - median)
		devs[i] = math.Abs(v - median)
	}
	slices.Sort(devs)

	q1, q3 := sorted[n/4], sorted[(3*n)/4]
	return domain.Distribution{
		Count:            n,
		Mean:             mean,
		Median:           median,
		StdDev:           math.Sqrt(sq / float64(n)),
		MeanAbsDev:       absMean / float64(n),
		MeanAbsDevMedian: absMedian / float64(n),
		MedianAbsDev:     medianSorted(devs),
		Q1:               q1,
		Q3:               q3,
		IQR:              q3 - q1,
		Min:              sorted[0],
		Max:              sorted[n-1],
	}
}

// Summarize agrega los outcomes de un run.
//
// filter == "" agrega todos los trials. Los porcentajes por end state se
// calculan siempre sobre el total; el resto de métricas sobre el subconjunto
// filtrado. Si el filtro no deja trials devuelve un Summary vacío con
// NoMatchingTrials=true y un error que envuelve domain.ErrEmptyResult.
func Summarize(outcomes []domain.TrialOutcome, filter domain.Status) (domain.Summary, error) {
	s := domain.Summary{
		Condition:           conditionName(filter),
		TotalTrials:         len(outcomes),
		EndStatePercentages: make(map[domain.Status]float64, len(domain.EndStates)),
	}

	counts := make(map[domain.Status]int, len(domain.EndStates))
	var balances, net, days, payouts []float64
	for _, o := range outcomes {
		counts[o.EndState]++
		if filter != "" && o.EndState != filter {
			continue
		}
		balances = append(balances, o.FinalBalance)
		net = append(net, o.NetPayout)
		days = append(days, float64(o.DaysSurvived))
		payouts = append(payouts, float64(o.PayoutsTaken))
	}
	for _, st := range domain.EndStates {
		s.EndStatePercentages[st] = percent(counts[st], len(outcomes))
	}

	s.MatchingTrials = len(balances)
	if s.MatchingTrials == 0 {
		s.NoMatchingTrials = true
		return s, fmt.Errorf("stats.Summarize: condition %s: %w", s.Condition, domain.ErrEmptyResult)
	}

	s.Balance = Describe(balances)
	s.NetPayout = Describe(net)
	s.MeanDays = Describe(days).Mean
	s.MeanPayouts = Describe(payouts).Mean
	s.PositiveBalancePct = percent(countPositive(balances), len(balances))
	s.PositiveNetPayoutPct = percent(countPositive(net), len(net))
	return s, nil
}

// FilteredBalances devuelve los balances finales del subconjunto filtrado,
// ordenados por índice de trial.
func FilteredBalances(outcomes []domain.TrialOutcome, filter domain.Status) []float64 {
	out := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if filter == "" || o.EndState == filter {
			out = append(out, o.FinalBalance)
		}
	}
	return out
}

func conditionName(filter domain.Status) string {
	if filter == "" {
		return "All"
	}
	return string(filter)
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func countPositive(values []float64) int {
	n := 0
	for _, v := range values {
		if v > 0 {
			n++
		}
	}
	return n
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
