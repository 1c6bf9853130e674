package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server the service's HTTP listener. Write timeout is generous because
// the assignments xlsx export streams the whole workbook in one response.
type Server struct {
	name       string
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(name, addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{name: name, httpServer: s, logger: logger}
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server listening",
		zap.String("service", s.name),
		zap.String("addr", s.httpServer.Addr),
	)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down", zap.String("service", s.name))
	return s.httpServer.Shutdown(ctx)
}
