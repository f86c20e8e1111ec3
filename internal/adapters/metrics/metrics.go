// Package metrics exporta métricas Prometheus del simulador.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/razor389/prop-simulator/internal/domain"
)

const namespace = "propsim"

// Prometheus implementa ports.Metrics sobre un registry propio, así varios
// servidores (o tests) pueden convivir en el mismo proceso.
type Prometheus struct {
	registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	TrialsTotal   *prometheus.CounterVec
	TrialFailures prometheus.Counter
}

// New crea y registra todas las métricas.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total simulation runs by result (ok, empty, cancelled)",
		}, []string{"result"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a simulation run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		TrialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trials_total",
			Help:      "Completed trials by end state",
		}, []string{"end_state"}),
		TrialFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trial_failures_total",
			Help:      "Trials excluded from aggregation because of data errors",
		}),
	}
}

// TrialFinished implementa ports.Metrics.
func (p *Prometheus) TrialFinished(state domain.Status) {
	p.TrialsTotal.WithLabelValues(string(state)).Inc()
}

// TrialFailed implementa ports.Metrics.
func (p *Prometheus) TrialFailed() {
	p.TrialFailures.Inc()
}

// RunFinished implementa ports.Metrics.
func (p *Prometheus) RunFinished(result string, d time.Duration) {
	p.RunsTotal.WithLabelValues(result).Inc()
	p.RunDuration.Observe(d.Seconds())
}

// Handler devuelve el handler HTTP de /metrics para este registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry expone el registry subyacente.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
