package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/causalstack/causal-sentinel/internal/services"
)

// Server exposes the analysis service over HTTP JSON.
type Server struct {
	logger *slog.Logger
	http   *http.Server
}

// NewServer builds the HTTP server for the given analyzer.
func NewServer(address string, analyzer *services.Analyzer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{analyzer: analyzer, logger: logger}

	mux := http.NewServeMux()
	// Go 1.21's ServeMux has no method patterns; gate methods explicitly.
	mux.HandleFunc("/api/v1/analyze", requireMethod(http.MethodPost, h.analyze))
	mux.HandleFunc("/api/v1/healthz", requireMethod(http.MethodGet, h.health))

	return &Server{
		logger: logger,
		http: &http.Server{
			Addr:              address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// Address returns the listen address.
func (s *Server) Address() string { return s.http.Addr }

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
