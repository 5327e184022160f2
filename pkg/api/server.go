// Package api exposes the refactoring service over HTTP: session
// creation, status, SSE progress streaming, confirmation gates, and a
// WebSocket alternative for interactive clients.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/events"
	"github.com/codeready-toolchain/repoai/pkg/pipeline"
	"github.com/codeready-toolchain/repoai/pkg/session"
)

// Server wires the session manager, the per-session event buses, and
// the pipeline controller behind a gin router.
type Server struct {
	sessions   *session.Manager
	buses      *events.Registry
	controller *pipeline.Controller
	cfg        config.SystemConfig
	logger     *slog.Logger
}

func NewServer(sessions *session.Manager, buses *events.Registry, controller *pipeline.Controller, cfg config.SystemConfig) *Server {
	return &Server{
		sessions:   sessions,
		buses:      buses,
		controller: controller,
		cfg:        cfg,
		logger:     slog.With("component", "api"),
	}
}

// Routes builds the HTTP handler: the gin engine for the REST and SSE
// endpoints, plus the WebSocket endpoint on the raw ResponseWriter.
// websocket.Accept writes the 101 before hijacking, and gin's buffered
// writer refuses to hand over a connection it considers written.
func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(s.cfg.CORSAllowedOrigins))

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.POST("/refactor", s.createRefactor)
		api.GET("/refactor", s.listRefactors)
		api.GET("/refactor/:id", s.getRefactor)
		api.GET("/refactor/:id/sse", s.streamSSE)
		api.POST("/refactor/:id/confirm-plan", s.confirmPlan)
		api.POST("/refactor/:id/confirm-validation", s.confirmValidation)
		api.POST("/refactor/:id/confirm-push", s.confirmPush)
		api.POST("/refactor/:id/cancel", s.cancelRefactor)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/refactor/", s.websocketRefactor)
	mux.Handle("/", r)
	return mux
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
// Active pipelines keep running through shutdown; only the listener
// drains.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": len(s.sessions.List()),
	})
}
