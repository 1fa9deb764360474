package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/analytics"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/fees"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/indicators"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/orders"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/pricing"
)

// Config holds server configuration and the module handlers to mount.
type Config struct {
	Port    int
	Log     zerolog.Logger
	DevMode bool

	Portfolio  *portfolio.Handlers
	Orders     *orders.Handlers
	Analytics  *analytics.Handlers
	Fees       *fees.Handlers
	Pricing    *pricing.Handlers
	Indicators *indicators.Handlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	port   int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		port:   cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	// Health check
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/portfolios", func(r chi.Router) {
			r.Post("/", cfg.Portfolio.HandleCreatePortfolio)
			r.Get("/", cfg.Portfolio.HandleListPortfolios)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Portfolio.HandleGetPortfolio)
				r.Delete("/", cfg.Portfolio.HandleArchive)
				r.Patch("/status", cfg.Portfolio.HandleSetStatus)
				r.Get("/value", cfg.Portfolio.HandleGetValue)
				r.Get("/allocation", cfg.Portfolio.HandleGetAllocation)
				r.Get("/holdings", cfg.Portfolio.HandleGetHoldings)
				r.Get("/transactions", cfg.Portfolio.HandleGetTransactions)

				r.Post("/orders/buy", cfg.Orders.HandleBuy)
				r.Post("/orders/sell", cfg.Orders.HandleSell)
				r.Post("/signals/execute", cfg.Orders.HandleExecuteSignals)

				r.Get("/snapshots", cfg.Portfolio.HandleGetSnapshots)
				r.Post("/snapshots", cfg.Analytics.HandleCreateSnapshot)

				r.Get("/trades", cfg.Analytics.HandleGetTradeOutcomes)
				r.Route("/metrics", func(r chi.Router) {
					r.Post("/performance", cfg.Analytics.HandleComputePerformance)
					r.Get("/performance", cfg.Analytics.HandleGetPerformanceHistory)
					r.Post("/risk", cfg.Analytics.HandleComputeRisk)
					r.Get("/risk", cfg.Analytics.HandleGetRiskHistory)
					r.Get("/advanced", cfg.Analytics.HandleAdvancedReport)
				})
			})
		})

		r.Post("/signals/model/{model}/execute", cfg.Orders.HandleExecuteModelSignals)

		r.Route("/fees", func(r chi.Router) {
			r.Post("/", cfg.Fees.HandleCreate)
			r.Get("/{name}", cfg.Fees.HandleGetByName)
		})

		r.Route("/prices", func(r chi.Router) {
			r.Put("/", cfg.Pricing.HandleUpsertPrice)
			r.Get("/{class}/{ticker}", cfg.Pricing.HandleGetPrice)
		})

		r.Post("/indicators", cfg.Indicators.HandleCompute)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
