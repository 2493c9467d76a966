// Package api exposes the analysis service as JSON over gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pmiengine/app"
	"pmiengine/domain/species"
	"pmiengine/internal"
	"pmiengine/internal/comparator"
	"pmiengine/internal/consensus"
	"pmiengine/internal/errors"
	"pmiengine/internal/metrics"
)

// Service is what the handlers need from the application layer
type Service interface {
	Species() []*species.Profile
	Estimate(ctx context.Context, req app.EstimateRequest) (*app.EstimateResult, error)
	Compare(ctx context.Context, req app.EstimateRequest) (*comparator.MultiMethodResult, error)
	Validate(ctx context.Context, req app.EstimateRequest) (*app.ValidationReport, error)
	Consensus(ctx context.Context, req app.ConsensusRequest) (*consensus.Result, error)
}

// Handler serves the /v1 routes
type Handler struct {
	svc     Service
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *internal.Logger
}

// NewHandler creates the handler set. A zero timeout leaves request contexts untouched.
func NewHandler(svc Service, m *metrics.Metrics, timeout time.Duration, logger *internal.Logger) *Handler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Handler{svc: svc, metrics: m, timeout: timeout, logger: logger.With("API")}
}

// Engine builds a gin engine with recovery, request metrics and the /v1 group
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.logger.Error("panic in %s %s: %v", c.Request.Method, c.FullPath(), recovered)
		h.writeError(c, errors.InternalError("internal server error"))
	}))
	r.Use(h.observe())
	h.Register(r.Group("/v1"))
	return r
}

// Register mounts the routes on a router group
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/species", h.handleSpecies)
	r.POST("/estimate", h.withTimeout(h.handleEstimate))
	r.POST("/compare", h.withTimeout(h.handleCompare))
	r.POST("/validate", h.withTimeout(h.handleValidate))
	r.POST("/consensus", h.withTimeout(h.handleConsensus))
}

func (h *Handler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.ObserveRequest(route, c.Writer.Status(), time.Since(start))
	}
}

func (h *Handler) withTimeout(next gin.HandlerFunc) gin.HandlerFunc {
	if h.timeout <= 0 {
		return next
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		next(c)
	}
}

func (h *Handler) handleSpecies(c *gin.Context) {
	profiles := h.svc.Species()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(profiles),
		"species": profiles,
	})
}

func (h *Handler) handleEstimate(c *gin.Context) {
	var req app.EstimateRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Estimate(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) handleCompare(c *gin.Context) {
	var req app.EstimateRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Compare(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) handleValidate(c *gin.Context) {
	var req app.EstimateRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Validate(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) handleConsensus(c *gin.Context) {
	var req app.ConsensusRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Consensus(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, consensus.NewReport(res))
}

func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.writeError(c, errors.InvalidInput("malformed request body: "+err.Error()))
		return false
	}
	return true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		h.logger.Debug("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
