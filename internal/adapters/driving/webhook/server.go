package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/northgate-labs/docsync/internal/logger"
)

// Server hosts the notification endpoint.
type Server struct {
	server *http.Server
	log    *logger.Logger
}

// NewServer creates an HTTP server exposing the handler at /notifications
// and a liveness probe at /healthz.
func NewServer(addr string, handler *Handler, log *logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/notifications", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log.With("adapter", "webhook"),
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("webhook server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
