package domain

import "time"

// Distribution describe una serie de valores finales.
type Distribution struct {
	Count            int
	Mean             float64
	Median           float64
	StdDev           float64 // poblacional
	MeanAbsDev       float64 // media de |x - mean|
	MeanAbsDevMedian float64 // media de |x - median|
	MedianAbsDev     float64 // mediana de |x - median|
	Q1               float64
	Q3               float64
	IQR              float64
	Min              float64
	Max              float64
}

// HistogramBin es un bucket de igual ancho del histograma de balances.
type HistogramBin struct {
	Lower   float64
	Upper   float64
	Count   int
	Percent float64
}

// Summary es la salida del agregador.
type Summary struct {
	Condition            string // "All" o el end state filtrado
	TotalTrials          int    // trials agregados (excluye los fallidos)
	MatchingTrials       int
	NoMatchingTrials     bool
	Balance              Distribution
	NetPayout            Distribution
	MeanDays             float64
	MeanPayouts          float64
	EndStatePercentages  map[Status]float64 // sobre todos los trials, sin filtro
	PositiveBalancePct   float64
	PositiveNetPayoutPct float64
}

// RunResult agrupa todo lo producido por un run de Monte Carlo.
type RunResult struct {
	RunID         string
	AccountType   string
	Seed          uint64
	Iterations    int
	Completed     int
	FailedTrials  int
	Failures      []TrialFailure // primeras fallas, para diagnóstico
	Cancelled     bool
	StartedAt     time.Time
	Duration      time.Duration
	Summary       Summary
	FinalBalances []float64 // balances del subconjunto filtrado, para histogramas
	Histogram     []HistogramBin
	Outcomes      []TrialOutcome // todos los trials exitosos, orden por índice
}
