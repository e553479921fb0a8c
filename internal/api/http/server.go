package http

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Server wraps an HTTP server with address and lifecycle methods.
type Server struct {
	server *http.Server
}

// NewServer creates a Server for the given handler and address. No write
// timeout is set: the event stream endpoint holds its response open
// indefinitely.
func NewServer(h http.Handler, addr string) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start starts serving on the configured address.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.server.Addr
}
