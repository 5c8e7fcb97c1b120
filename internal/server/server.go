package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tracker/internal/auth"
	"tracker/internal/models"
	"tracker/internal/service"
)

// Options tunes HTTP behaviour that depends on deployment.
type Options struct {
	// SecureCookie marks the session cookie Secure; enable behind TLS.
	SecureCookie bool
}

// Server provides HTTP handlers for the project tracker API.
type Server struct {
	engine  *gin.Engine
	svc     *service.Service
	auth    *auth.Service
	logger  *slog.Logger
	options Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(svc *service.Service, authSvc *auth.Service, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:  router,
		svc:     svc,
		auth:    authSvc,
		logger:  logger,
		options: opts,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", s.handleRegister)
			authRoutes.POST("/login", s.handleLogin)
			authRoutes.POST("/logout", s.handleLogout)
			authRoutes.GET("/me", s.requireUser, s.handleMe)
		}

		protected := api.Group("", s.requireUser)

		projects := protected.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.GET(":id/tasks", s.handleListProjectTasks)
			projects.POST(":id/tasks", s.handleCreateProjectTask)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found", "kind": kindNotFound})
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pathID reads a non-empty identifier from the route.
func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier", "kind": kindValidation})
		return "", false
	}
	return id, true
}

const (
	kindValidation   = "validation"
	kindNotFound     = "not_found"
	kindUnauthorized = "unauthorized"
	kindConflict     = "conflict"
	kindInternal     = "internal"
)

// classify maps a domain error onto an HTTP status and error kind.
func classify(err error) (int, string) {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest, kindValidation
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, kindUnauthorized
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, kindConflict
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

// respondError logs the error and returns a JSON payload naming its kind.
// Store failures are reported without their details.
func (s *Server) respondError(c *gin.Context, err error) {
	status, kind := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		message = "internal error"
	} else {
		s.logger.Warn("request rejected", slog.String("path", c.FullPath()), slog.String("kind", kind), slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "kind": kind})
}

// respondBindError reports a body that could not be decoded.
func (s *Server) respondBindError(c *gin.Context, err error) {
	s.respondError(c, models.Invalid("", "invalid request body: "+err.Error()))
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
