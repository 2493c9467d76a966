// Package metrics holds the Prometheus instruments for estimation and
// consensus runs. Every method is safe to call on a nil *Metrics so callers
// can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pmiengine/internal/consensus"
	"pmiengine/internal/errors"
	"pmiengine/internal/uncertainty"
)

const namespace = "pmi"

// Outcome label values
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the collectors registered on one registry
type Metrics struct {
	// EstimatesTotal counts single estimates. Labels: method, outcome
	EstimatesTotal *prometheus.CounterVec

	// ConsensusRunsTotal counts batch analyses. Labels: severity
	ConsensusRunsTotal *prometheus.CounterVec

	// ExcludedSpecimensTotal counts specimens dropped from a batch. Labels: code
	ExcludedSpecimensTotal *prometheus.CounterVec

	// BatchSize records how many specimens each consensus run received
	BatchSize prometheus.Histogram

	// SimulationTrials records trials used per Monte Carlo run. Labels: converged
	SimulationTrials *prometheus.HistogramVec

	// RequestDuration records HTTP handler latency. Labels: route, status
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EstimatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "estimates_total",
				Help:      "Total PMI estimates by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		ConsensusRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consensus",
				Name:      "runs_total",
				Help:      "Total multi-specimen analyses by conflict severity",
			},
			[]string{"severity"},
		),
		ExcludedSpecimensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consensus",
				Name:      "excluded_specimens_total",
				Help:      "Specimens excluded from a batch by error code",
			},
			[]string{"code"},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "consensus",
				Name:      "batch_size",
				Help:      "Specimens per consensus run",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50, 100},
			},
		),
		SimulationTrials: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "montecarlo",
				Name:      "trials",
				Help:      "Trials used per Monte Carlo run",
				Buckets:   prometheus.ExponentialBuckets(1000, 2, 8),
			},
			[]string{"converged"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration by route and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
		gatherer: reg,
	}
}

// ObserveEstimate counts one estimate attempt
func (m *Metrics) ObserveEstimate(method string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.EstimatesTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveConsensus records a finished batch analysis
func (m *Metrics) ObserveConsensus(r *consensus.Result) {
	if m == nil || r == nil {
		return
	}
	m.ConsensusRunsTotal.WithLabelValues(string(r.Conflicts.Severity)).Inc()
	m.BatchSize.Observe(float64(len(r.Specimens) + len(r.Excluded)))
	for _, ex := range r.Excluded {
		code := ex.Code
		if code == "" {
			code = errors.CodeUnknown
		}
		m.ExcludedSpecimensTotal.WithLabelValues(code).Inc()
	}
}

// ObserveSimulation records the trials a Monte Carlo run consumed
func (m *Metrics) ObserveSimulation(mc uncertainty.MonteCarlo) {
	if m == nil {
		return
	}
	m.SimulationTrials.WithLabelValues(strconv.FormatBool(mc.Converged)).Observe(float64(mc.TrialsUsed))
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
