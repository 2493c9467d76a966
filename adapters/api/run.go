package api

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pmiengine/app"
	v1 "pmiengine/internal/api"
	"pmiengine/internal/config"
	"pmiengine/internal/metrics"
)

// Build wires the analysis service, the /v1 handlers and the metrics registry
// into a server
func Build(cfg *config.Config) (*Server, error) {
	logger := cfg.Logger()
	gin.SetMode(cfg.Server.GinMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc, err := app.NewAnalysisService(cfg, app.Dependencies{Metrics: m, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}
	handler := v1.NewHandler(svc, m, cfg.Server.RequestTimeout, logger)
	return NewServer(cfg.Server, handler.Engine(), m, logger), nil
}

// Run builds the server and serves until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config) error {
	srv, err := Build(cfg)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
