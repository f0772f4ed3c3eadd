package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/config"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	sloghttp "github.com/samber/slog-http"
)

// Runner publishes one issue on demand
type Runner interface {
	Run(ctx context.Context) (*domain.Magazine, error)
}

// Server exposes the rendered issue, a publish trigger and metrics
type Server struct {
	cfg    *config.Config
	runner Runner
	logger *slog.Logger
	server *http.Server
}

// New creates a new HTTP server
func New(cfg *config.Config, runner Runner) *Server {
	return &Server{
		cfg:    cfg,
		runner: runner,
		logger: slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler builds the routed handler with logging and recovery middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /content/", http.StripPrefix("/content/", http.FileServer(http.Dir(s.cfg.ContentDir))))
	mux.HandleFunc("POST /run", s.handleRun)

	handler := sloghttp.Recovery(mux)
	return sloghttp.New(s.logger)(handler)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr, "content_dir", s.cfg.ContentDir)

	// POST /run answers only after every feed was fetched
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type runResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Sections int    `json:"sections"`
	Articles int    `json:"articles"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	magazine, err := s.runner.Run(r.Context())
	switch {
	case err == nil:
	case errors.IsBenign(err):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, errors.ErrRunInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	default:
		s.logger.Error("Publish run failed", "error", err)
		http.Error(w, "Failed to publish magazine", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(runResponse{
		ID:       magazine.ID,
		Title:    magazine.Title,
		Date:     magazine.Date,
		Sections: len(magazine.Sections),
		Articles: len(magazine.Articles()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
