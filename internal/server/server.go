// Package server exposes discovery and reporting over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/competitor"
	"github.com/watanabekazunori/tonarino/internal/metrics"
	"github.com/watanabekazunori/tonarino/internal/model"
	"github.com/watanabekazunori/tonarino/internal/report"
	"github.com/watanabekazunori/tonarino/pkg/google"
	"github.com/watanabekazunori/tonarino/pkg/sheets"
)

// PlaceSearcher finds stores by free text.
type PlaceSearcher interface {
	TextSearch(ctx context.Context, query string) (*google.SearchResponse, error)
}

// CompetitorFinder runs competitor discovery.
type CompetitorFinder interface {
	Discover(ctx context.Context, self competitor.Self) (*competitor.Result, error)
}

// ReportRunner generates and persists a report.
type ReportRunner interface {
	Run(ctx context.Context, req report.Request) (*model.ReportRecord, error)
}

// Store is the persistence the API reads and logs to.
type Store interface {
	SaveSearch(ctx context.Context, s *model.SearchLog) error
	GetReport(ctx context.Context, id, userID string) (*model.ReportRecord, error)
	ListReports(ctx context.Context, userID string) ([]model.ReportRecord, error)
}

// Config holds server settings.
type Config struct {
	Port           int
	AllowedOrigins []string
	Auth           AuthConfig
}

// Deps are the collaborators behind the API.
type Deps struct {
	Places      PlaceSearcher
	Competitors CompetitorFinder
	Reports     ReportRunner
	Store       Store
	Sheets      sheets.Client
}

// Server routes API requests to its collaborators.
type Server struct {
	deps Deps
	auth AuthConfig
	cfg  Config
	log  *zap.Logger
	now  func() time.Time

	// background runs best-effort side effects.
	background func(func())
}

// New creates a Server.
func New(cfg Config, deps Deps) *Server {
	return &Server{
		deps:       deps,
		auth:       cfg.Auth,
		cfg:        cfg,
		log:        zap.L().With(zap.String("component", "server")),
		now:        time.Now,
		background: func(f func()) { go f() },
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Post("/competitors", s.handleCompetitors)
		r.Post("/inquiry", s.handleInquiry)
		r.Post("/sheets/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/report", s.handleCreateReport)
			r.Get("/report", s.handleGetReports)
		})
	})
	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	port := s.cfg.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	s.log.Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// instrument logs each request and counts it by route pattern and status.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
