package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/domain"
	"github.com/crisis-triage-mcp-server/internal/middleware"
	"github.com/crisis-triage-mcp-server/internal/service"
)

// HealthReporter adds component status to the health endpoint.
type HealthReporter interface {
	BreakerState() string
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	triage        *service.TriageService
	health        HealthReporter
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. health may be nil.
func NewServer(configManager domain.ConfigManager, triage *service.TriageService, health HealthReporter, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if configManager.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	s := &Server{
		configManager: configManager,
		triage:        triage,
		health:        health,
		logger:        logger,
		router:        router,
	}
	s.setupRoutes()

	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/score", s.handleScore)
		v1.POST("/classify", s.handleClassify)
		v1.GET("/actions/:tier", s.handleActions)

		v1.POST("/patients", s.handleRegisterPatient)
		v1.GET("/patients", s.handleListPatients)
		v1.GET("/patients/:id", s.handleGetPatient)
		v1.POST("/patients/:id/assessments", s.handleSubmitAssessment)

		v1.GET("/triage", s.handleTriageBoard)
		v1.GET("/alerts", s.handleListAlerts)
		v1.POST("/alerts/:id/read", s.handleMarkAlertRead)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.configManager.GetMCPConfig().ServerVersion,
	}
	if s.health != nil {
		body["sentiment_breaker"] = s.health.BreakerState()
	}
	c.JSON(http.StatusOK, body)
}

// respondError maps service errors onto HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	correlationID := c.GetString(middleware.CorrelationIDKey)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, domain.NewTriageError(domain.ErrCodeNotFound, err.Error(), "", correlationID))
	case errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrInvalidTier):
		c.JSON(http.StatusBadRequest, domain.NewTriageError(domain.ErrCodeInvalidInput, err.Error(), "", correlationID))
	default:
		s.logger.WithError(err).WithField("correlation_id", correlationID).Error("Request failed")
		c.JSON(http.StatusInternalServerError, domain.NewTriageError(domain.ErrCodeInternalServer, "internal server error", "", correlationID))
	}
}

func (s *Server) respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, domain.NewTriageError(
		domain.ErrCodeValidation, "invalid request body", err.Error(), c.GetString(middleware.CorrelationIDKey)))
}
