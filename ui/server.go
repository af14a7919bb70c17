package ui

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"gridwatch/app"
	"gridwatch/domain/anomaly"
	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/reading"
	"gridwatch/internal"
	apperrors "gridwatch/internal/errors"
	"gridwatch/ports"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed methodology.md
var methodologyMarkdown []byte

// Server exposes the detection engine over HTTP.
type Server struct {
	router    *gin.Engine
	detection *app.DetectionService
	customers ports.CustomerRepository
	readings  ports.ReadingRepository
	logger    *internal.Logger

	// Methodology page is static markdown, rendered once.
	methodologyOnce sync.Once
	methodologyHTML []byte
}

// NewServer wires routes onto a fresh gin engine.
func NewServer(
	detection *app.DetectionService,
	customers ports.CustomerRepository,
	readings ports.ReadingRepository,
	logger *internal.Logger,
) *Server {
	s := &Server{
		router:    gin.Default(),
		detection: detection,
		customers: customers,
		readings:  readings,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/methodology", s.handleMethodology)

	api := s.router.Group("/api")
	{
		api.POST("/runs", s.handleRunDetection)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.GET("/runs/:id/anomalies", s.handleRunAnomalies)
		api.GET("/runs/:id/importance", s.handleRunImportance)

		api.GET("/customers", s.handleListCustomers)
		api.GET("/customers/:id", s.handleGetCustomer)

		api.GET("/stats/monthly", s.handleMonthlyStats)
		api.GET("/screening/changes", s.handleConsumptionChanges)
	}
}

// Start runs the HTTP server on the given address until it fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("serving detection API on http://%s", addr)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleMethodology serves the model documentation as rendered HTML.
func (s *Server) handleMethodology(c *gin.Context) {
	s.methodologyOnce.Do(func() {
		p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
		renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
		s.methodologyHTML = markdown.ToHTML(methodologyMarkdown, p, renderer)
	})
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.methodologyHTML)
}

// handleRunDetection executes a scoring run for the requested period.
func (s *Server) handleRunDetection(c *gin.Context) {
	var req app.DetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	run, err := s.detection.RunDetection(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	runs, err := s.detection.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.loadRun(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleRunAnomalies returns a run's flagged customers, highest score first.
func (s *Server) handleRunAnomalies(c *gin.Context) {
	run, err := s.loadRun(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":    run.ID,
		"threshold": run.Threshold,
		"flagged":   run.Flagged,
		"count":     len(run.Flagged),
	})
}

func (s *Server) handleRunImportance(c *gin.Context) {
	run, err := s.loadRun(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "importance": run.Importance})
}

func (s *Server) handleListCustomers(c *gin.Context) {
	ctx := c.Request.Context()
	zone := c.Query("zone")

	var (
		customers interface{}
		err       error
	)
	if zone != "" {
		customers, err = s.customers.ListByZone(ctx, zone)
	} else {
		customers, err = s.customers.List(ctx)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (s *Server) handleGetCustomer(c *gin.Context) {
	id, err := core.ParseCustomerID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cust, err := s.customers.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

// handleMonthlyStats aggregates consumption per month grouped by stratum or
// zone.
func (s *Server) handleMonthlyStats(c *gin.Context) {
	groupBy := app.GroupBy(c.DefaultQuery("group_by", string(app.GroupByStratum)))

	consumption, customers, err := s.loadDataset(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	stats, err := app.MonthlyGroupStats(consumption, customers, groupBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_by": groupBy, "stats": stats})
}

// handleConsumptionChanges runs the moving-average screening pass.
func (s *Server) handleConsumptionChanges(c *gin.Context) {
	thresholdPct := queryFloat(c, "threshold_pct", 30)
	window := queryInt(c, "window", 3)
	if window < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must be at least 1"})
		return
	}

	consumption, err := s.readings.ListConsumption(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	changes := app.DetectConsumptionChanges(consumption, nil, thresholdPct, window)
	c.JSON(http.StatusOK, gin.H{
		"threshold_pct": thresholdPct,
		"window":        window,
		"changes":       changes,
		"count":         len(changes),
	})
}

// loadRun parses the :id param and fetches the run, writing the error
// response itself on failure.
func (s *Server) loadRun(c *gin.Context) (*anomaly.Run, error) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, err
	}
	run, err := s.detection.GetRun(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return nil, err
	}
	return run, nil
}

func (s *Server) loadDataset(ctx context.Context) ([]reading.Consumption, []customer.Customer, error) {
	consumption, err := s.readings.ListConsumption(ctx)
	if err != nil {
		return nil, nil, err
	}
	customers, err := s.customers.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return consumption, customers, nil
}

// respondError maps domain sentinels onto HTTP statuses. Every envelope
// carries a machine-readable code so clients can branch on the failure class
// without parsing the message.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	// A bad feature selection is a caller mistake, not a missing resource,
	// so it is checked before the generic not-found family.
	case errors.Is(err, core.ErrThresholdFactorOutOfRange),
		errors.Is(err, core.ErrFeatureNotFound),
		errors.Is(err, core.ErrInsufficientData):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeInvalidInput})
	case errors.Is(err, core.ErrDimensionMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeDimensionMismatch})
	case errors.Is(err, core.ErrAllMissingColumn):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeAllMissingColumn})
	case core.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": apperrors.CodeNotFound})
	case errors.Is(err, core.ErrSingularCovariance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": apperrors.CodeSingularCovariance})
	case errors.Is(err, core.ErrNotFitted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": apperrors.CodeNotFitted})
	default:
		s.logger.Error("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": apperrors.CodeInternalError})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func queryFloat(c *gin.Context, key string, fallback float64) float64 {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}
