// Package server exposes the signal engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/engine"
	"github.com/Alias1177/SignalBot/models"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

// Engine is the prediction lifecycle served by the API
type Engine interface {
	Predict(ctx context.Context) (models.Prediction, error)
	ObserveAndResolve(ctx context.Context) (engine.Observation, error)
	Snapshot(ctx context.Context) (models.Statistics, *models.Prediction, error)
	LastPrediction(ctx context.Context) (*models.Prediction, error)
}

// HistoryFeed lists recent rounds
type HistoryFeed interface {
	FetchHistory(ctx context.Context, limit int) ([]models.RoundOutcome, error)
}

// StatsResponse is the body of GET /api/stats
type StatsResponse struct {
	History        models.Statistics  `json:"history"`
	LastPrediction *models.Prediction `json:"last_prediction"`
}

// Server is the HTTP API
type Server struct {
	httpServer *http.Server
	engine     Engine
	history    HistoryFeed
	logger     zerolog.Logger
}

// NewServer creates a server listening on addr
func NewServer(addr string, eng Engine, history HistoryFeed) *Server {
	s := &Server{
		engine:  eng,
		history: history,
		logger:  log.With().Str("component", "http_server").Logger(),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/prediction", s.handlePrediction)
		r.Get("/recent", s.handleRecent)
		r.Post("/predict", s.handlePredict)
		r.Post("/observe", s.handleObserve)
	})
	return r
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, last, err := s.engine.Snapshot(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, StatsResponse{History: stats, LastPrediction: last})
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	last, err := s.engine.LastPrediction(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if last == nil {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "no prediction yet"})
		return
	}
	respondJSON(w, http.StatusOK, last)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	pred, err := s.engine.Predict(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pred)
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	obs, err := s.engine.ObserveAndResolve(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, obs)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentLimit)
	}
	rounds, err := s.history.FetchHistory(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rounds)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
