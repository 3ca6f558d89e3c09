package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/bookwatch/internal/logger"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the HTTP server hosting the API.
type Server struct {
	httpServer *http.Server
	log        logger.Interface
}

// NewServer creates the API server around a configured router.
func NewServer(router *gin.Engine, cfg Config, log logger.Interface) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		log: log.WithComponent("server"),
	}
}

// Start listens and serves until the server is shut down.
func (s *Server) Start() error {
	s.log.Info("http server starting", "address", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
