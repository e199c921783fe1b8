package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
)

type Server struct {
	httpServer *http.Server
	log        logger.Logger
	port       string
}

func NewServer(log logger.Logger, port string, readTimeout, writeTimeout time.Duration, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		log:  log,
		port: port,
	}
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	s.log.Infof("HTTP server is starting on port %s", s.port)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed to serve on port %s: %w", s.port, err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server is stopping gracefully")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Warn("HTTP graceful shutdown timed out, forcing close")
		_ = s.httpServer.Close()
		return err
	}
	s.log.Info("HTTP server stopped gracefully")
	return nil
}
