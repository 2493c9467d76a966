package metrics

import (
	stderrors "errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmiengine/internal/consensus"
	"pmiengine/internal/uncertainty"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return New(prometheus.NewRegistry())
}

func TestObserveEstimate(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveEstimate("add_standard", nil)
	m.ObserveEstimate("add_standard", nil)
	m.ObserveEstimate("add_standard", stderrors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EstimatesTotal.WithLabelValues("add_standard", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EstimatesTotal.WithLabelValues("add_standard", OutcomeError)))
}

func TestObserveConsensus(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveConsensus(&consensus.Result{
		Specimens: make([]consensus.SpecimenResult, 2),
		Excluded: []consensus.Excluded{
			{Position: 2, Code: "INPUT_VALIDATION"},
			{Position: 3},
		},
		Conflicts: consensus.ConflictAnalysis{Severity: consensus.SeveritySevere},
	})
	m.ObserveConsensus(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsensusRunsTotal.WithLabelValues("severe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExcludedSpecimensTotal.WithLabelValues("INPUT_VALIDATION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExcludedSpecimensTotal.WithLabelValues("UNKNOWN")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BatchSize))
}

func TestObserveSimulationAndRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveSimulation(uncertainty.MonteCarlo{TrialsUsed: 2000, Converged: true})
	m.ObserveRequest("/v1/estimate", 200, 15*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.SimulationTrials))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEstimate("add_standard", nil)
		m.ObserveConsensus(&consensus.Result{})
		m.ObserveSimulation(uncertainty.MonteCarlo{})
		m.ObserveRequest("/", 200, time.Second)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveEstimate("thermal_summation", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pmi_estimates_total{method="thermal_summation",outcome="ok"} 1`)
}
