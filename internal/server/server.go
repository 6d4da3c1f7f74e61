// Package server exposes the task engine over HTTP. Confirmation flows
// surface as 409 responses carrying the pending request; clients resolve
// them by posting the request back with a decision.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"lattice/internal/action"
	"lattice/internal/storage"
)

// Server provides HTTP handlers for the tracker backend.
type Server struct {
	engine *gin.Engine
	store  storage.Store
	router *action.Router
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(store storage.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	srv := &Server{
		engine: engine,
		store:  store,
		router: action.NewRouter(store, action.LogNotifier{Logger: logger}),
		logger: logger,
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

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleShowTask)
			tasks.GET(":id/availability", s.handleAvailability)
			tasks.POST(":id/subtasks", s.handleCreateSubtask)
			tasks.POST(":id/dependencies", s.handleAddDependency)
			tasks.DELETE(":id/dependencies/:dep", s.handleRemoveDependency)
			tasks.POST(":id/actions", s.handleAction)
		}

		api.POST("/confirmations", s.handleConfirmation)
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
