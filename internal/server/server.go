// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"problemhunter/internal/adapter/storage"
	"problemhunter/internal/config"
	"problemhunter/internal/server/handlers"
	"problemhunter/internal/service/aggregate"
	"problemhunter/internal/service/hunt"
	trendsvc "problemhunter/internal/service/trend"
	"problemhunter/internal/source"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	analyzer *trendsvc.Analyzer,
	hunter *hunt.Hunter,
	sources []source.Source,
	postStore *storage.PostStore,
	aggregator *aggregate.Aggregator,
	metricsRegistry *prometheus.Registry,
	defaultHuntLimit int,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(5 * time.Minute))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	trendHandler := handlers.NewTrendHandler(analyzer)
	huntHandler := handlers.NewHuntHandler(hunter, sources, defaultHuntLimit)
	postHandler := handlers.NewPostHandler(postStore)
	statsHandler := handlers.NewStatsHandler(postStore, aggregator)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Trends API
			r.Route("/trends", func(r chi.Router) {
				r.Get("/emerging", trendHandler.GetEmerging)
				r.Get("/declining", trendHandler.GetDeclining)
				r.Get("/{hash}", trendHandler.GetTrend)
				r.Get("/{hash}/frequency", trendHandler.GetFrequency)
			})

			// Posts API
			r.Route("/posts", func(r chi.Router) {
				r.Get("/recent", postHandler.GetRecent)
				r.Get("/{id}/analyses", postHandler.GetAnalysisHistory)
			})

			// Hunts API
			r.Post("/hunts", huntHandler.StartHunt)

			// Stats API
			r.Get("/stats", statsHandler.GetStats)
		})
	})

	// Prometheus metrics endpoint
	if metricsRegistry != nil {
		router.Get("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
