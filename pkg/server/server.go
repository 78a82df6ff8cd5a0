// Package server exposes the segmentation pipeline over HTTP. Each request
// carries its own dataset; nothing is shared between requests.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rfm-segments/pkg/config"
)

// Server wraps the gin engine and its http.Server.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *gin.Engine
}

// New builds the router. cfg supplies the default reference date, the CSV
// decoding options and the body size limit.
func New(cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}

	engine := gin.New()
	engine.Use(requestID(), requestLogger(logger), recovery(logger))

	engine.GET("/healthz", s.health)
	v1 := engine.Group("/v1")
	{
		v1.GET("/segments", s.listSegments)
		v1.POST("/segmentation", s.segmentation)
	}
	s.engine = engine
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on cfg.Server.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
