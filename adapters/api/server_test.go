package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmiengine/internal"
	"pmiengine/internal/config"
	"pmiengine/internal/metrics"
)

func testServer(t *testing.T, metricsEnabled bool) *Server {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveEstimate("add_standard", nil)

	v1 := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, r.URL.Path)
	})
	cfg := config.ServerConfig{Port: "0", GinMode: "test", MetricsEnabled: metricsEnabled}
	return NewServer(cfg, v1, m, internal.NewLoggerTo(internal.LogLevelError, io.Discard))
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(testServer(t, true), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	rec := get(testServer(t, true), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pmi_estimates_total")

	rec = get(testServer(t, false), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestV1IsMountedWithFullPath(t *testing.T) {
	rec := get(testServer(t, true), "/v1/species")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/v1/species", rec.Body.String())
}

func TestBuildServesRealRoutes(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Server.GinMode = "test"

	srv, err := Build(cfg)
	require.NoError(t, err)

	rec := get(srv, "/v1/species")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lucilia_sericata")

	rec = get(srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
