// Package api serves the tracker over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/baiirun/tasks/internal/model"
	"github.com/baiirun/tasks/internal/tracker"
)

// Server is the HTTP front end of a tracker.
type Server struct {
	tr     *tracker.Tracker
	router *gin.Engine
	log    zerolog.Logger

	metrics bool
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes GET /metrics when enabled.
func WithMetrics(enabled bool) Option {
	return func(s *Server) { s.metrics = enabled }
}

// NewServer creates the server and registers its routes.
func NewServer(tr *tracker.Tracker, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		tr:     tr,
		router: gin.New(),
		log:    log.With().Str("component", "api").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(requestID(), accessLog(s.log), gin.Recovery())

	tasks := s.router.Group("/tasks")
	{
		for _, kind := range []model.Kind{model.KindTask, model.KindEpic, model.KindSubtask} {
			path := "/" + kindPath(kind)
			tasks.GET(path, s.handleList(kind))
			tasks.GET(path+"/:id", s.handleGet(kind))
			tasks.POST(path, s.handleSave(kind))
			tasks.DELETE(path+"/:id", s.handleRemove(kind))
			tasks.DELETE(path, s.handleClear(kind))
		}
		tasks.GET("/epic/:id/subtasks", s.handleEpicSubtasks)
		tasks.GET("/prioritized", s.handlePrioritized)
		tasks.GET("/history", s.handleHistory)
	}
	if s.metrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is canceled, then shuts down, giving
// in-flight requests up to grace to finish.
func (s *Server) Serve(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
