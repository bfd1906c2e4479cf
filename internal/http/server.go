// Package http provides the HTTP API for searchd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/searchd/internal/ingest"
	"github.com/fyrsmithlabs/searchd/internal/models"
	"github.com/fyrsmithlabs/searchd/internal/store"
	"github.com/fyrsmithlabs/searchd/internal/tenant"
)

// Searcher answers search requests.
type Searcher interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
}

// Ingestor writes documents into the corpus.
type Ingestor interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// TenantResolver maps project identifiers for the ingest endpoint.
type TenantResolver interface {
	Resolve(ctx context.Context, identifier string) (tenant.Info, error)
}

// ProjectStore creates projects and answers corpus stats.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	CountChunks(ctx context.Context, projectID uuid.UUID) (int, error)
}

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// RequestTimeout bounds the context of every request, so a hung
	// downstream (embedding provider, vector store) cannot hold a
	// request open indefinitely. Zero disables the bound.
	RequestTimeout time.Duration
}

// Server provides HTTP endpoints for searchd.
type Server struct {
	echo     *echo.Echo
	searcher Searcher
	ingestor Ingestor
	resolver TenantResolver
	projects ProjectStore
	checks   []HealthCheck
	logger   *zap.Logger
	config   *Config
}

// NewServer creates a new HTTP server. The ingestor, resolver and project
// store are optional; their routes are only registered when present.
func NewServer(searcher Searcher, ingestor Ingestor, resolver TenantResolver, projects ProjectStore, checks []HealthCheck, logger *zap.Logger, cfg *Config) (*Server, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.RequestTimeout > 0 {
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.RequestTimeout)
				defer cancel()
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
		})
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		searcher: searcher,
		ingestor: ingestor,
		resolver: resolver,
		projects: projects,
		checks:   checks,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/search", s.handleSearch)
	if s.ingestor != nil && s.resolver != nil {
		v1.POST("/documents", s.handleIngest)
	}
	if s.projects != nil {
		v1.POST("/projects", s.handleCreateProject)
		if s.resolver != nil {
			v1.GET("/projects/:identifier/stats", s.handleProjectStats)
		}
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth probes every registered dependency. Any failing component
// degrades the whole answer and flips the status code to 503.
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(s.checks))
	for _, check := range s.checks {
		if err := check.Check(ctx); err != nil {
			components[check.Name] = err.Error()
			status = "degraded"
			continue
		}
		components[check.Name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, HealthResponse{Status: status, Components: components})
}

// handleSearch answers POST /api/v1/search.
func (s *Server) handleSearch(c echo.Context) error {
	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid search request body", zap.Error(err))
		return s.errorResponse(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	resp, err := s.searcher.Search(c.Request().Context(), &req)
	if err != nil {
		return s.translateError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// IngestRequest is the request body for POST /api/v1/documents.
type IngestRequest struct {
	ProjectID string         `json:"project_id"`
	Path      string         `json:"path"`
	Title     string         `json:"title,omitempty"`
	Category  string         `json:"category,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Chunks    []string       `json:"chunks"`
}

// IngestResponse is the response body for POST /api/v1/documents.
type IngestResponse struct {
	DocumentID    string `json:"document_id"`
	Changed       bool   `json:"changed"`
	ChunkCount    int    `json:"chunk_count"`
	CorpusVersion int    `json:"corpus_version,omitempty"`
}

// handleIngest answers POST /api/v1/documents.
func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ingest request body", zap.Error(err))
		return s.errorResponse(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}
	if req.ProjectID == "" || req.Path == "" || len(req.Chunks) == 0 {
		return s.errorResponse(c, http.StatusBadRequest, "validation_error", "project_id, path and chunks are required")
	}

	info, err := s.resolver.Resolve(c.Request().Context(), req.ProjectID)
	if err != nil {
		return s.translateError(c, err)
	}

	result, err := s.ingestor.Ingest(c.Request().Context(), ingest.Request{
		ProjectID: info.ID,
		Path:      req.Path,
		Title:     req.Title,
		Category:  req.Category,
		Metadata:  req.Metadata,
		Chunks:    req.Chunks,
	})
	if err != nil {
		return s.translateError(c, err)
	}

	return c.JSON(http.StatusOK, IngestResponse{
		DocumentID:    result.DocumentID.String(),
		Changed:       result.Changed,
		ChunkCount:    result.ChunkCount,
		CorpusVersion: result.CorpusVersion,
	})
}

// CreateProjectRequest is the request body for POST /api/v1/projects.
type CreateProjectRequest struct {
	Slug     string         `json:"slug"`
	Name     string         `json:"name,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// handleCreateProject answers POST /api/v1/projects.
func (s *Server) handleCreateProject(c echo.Context) error {
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid project request body", zap.Error(err))
		return s.errorResponse(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}
	if req.Slug == "" {
		return s.errorResponse(c, http.StatusBadRequest, "validation_error", "slug is required")
	}

	project := &models.Project{
		Slug:     req.Slug,
		Name:     req.Name,
		Settings: req.Settings,
	}
	if err := s.projects.CreateProject(c.Request().Context(), project); err != nil {
		return s.translateError(c, err)
	}

	return c.JSON(http.StatusCreated, project)
}

// ProjectStatsResponse is the response body for GET /api/v1/projects/:identifier/stats.
type ProjectStatsResponse struct {
	ProjectID     string `json:"project_id"`
	Slug          string `json:"slug"`
	CorpusVersion int    `json:"corpus_version"`
	ChunkCount    int    `json:"chunk_count"`
}

// handleProjectStats answers GET /api/v1/projects/:identifier/stats. The
// identifier resolves like a search request, slug or UUID.
func (s *Server) handleProjectStats(c echo.Context) error {
	identifier := c.Param("identifier")
	info, err := s.resolver.Resolve(c.Request().Context(), identifier)
	if err != nil {
		return s.translateError(c, err)
	}

	count, err := s.projects.CountChunks(c.Request().Context(), info.ID)
	if err != nil {
		return s.translateError(c, err)
	}

	return c.JSON(http.StatusOK, ProjectStatsResponse{
		ProjectID:     identifier,
		Slug:          info.Slug,
		CorpusVersion: info.CorpusVersion,
		ChunkCount:    count,
	})
}

// translateError maps pipeline errors to HTTP status codes. Anything not
// recognized is an internal failure; the detail stays in the log, not the
// response.
func (s *Server) translateError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return s.errorResponse(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, tenant.ErrProjectNotFound):
		return s.errorResponse(c, http.StatusNotFound, "not_found", "project not found")
	case errors.Is(err, store.ErrConflict):
		return s.errorResponse(c, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("request failed",
			zap.Error(err),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
		return s.errorResponse(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) errorResponse(c echo.Context, status int, code, detail string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:     http.StatusText(status),
		Detail:    detail,
		Code:      code,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
