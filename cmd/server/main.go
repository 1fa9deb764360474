package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leonberkemeier/PortfolioSimulation/internal/config"
	"github.com/leonberkemeier/PortfolioSimulation/internal/database"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/analytics"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/fees"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/indicators"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/orders"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/portfolio"
	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/pricing"
	"github.com/leonberkemeier/PortfolioSimulation/internal/scheduler"
	"github.com/leonberkemeier/PortfolioSimulation/internal/server"
	"github.com/leonberkemeier/PortfolioSimulation/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Portfolio Simulation")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	feeRepo := fees.NewRepository(db.Conn(), log)
	analyticsRepo := analytics.NewRepository(db.Conn(), log)

	// Price oracle: store-backed, with a TTL cache in front
	storeOracle := pricing.NewStoreOracle(db.Conn(), log)
	oracle := pricing.NewCachedOracle(storeOracle,
		time.Duration(cfg.PriceCacheTTLMins)*time.Minute, time.Now)

	// Services
	engine := orders.NewEngine(portfolioRepo, feeRepo, oracle, log)
	analyticsService := analytics.NewService(portfolioRepo, analyticsRepo, oracle, log)

	// Scheduler: daily NAV snapshots for all active portfolios
	sched := scheduler.New(log)
	snapshotJob := scheduler.NewSnapshotJob(analyticsService, log)
	if err := sched.AddJob(cfg.SnapshotSchedule, snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:       cfg.Port,
		Log:        log,
		DevMode:    cfg.DevMode,
		Portfolio:  portfolio.NewHandlers(portfolioRepo, oracle, log),
		Orders:     orders.NewHandlers(engine, log),
		Analytics:  analytics.NewHandlers(analyticsService, analyticsRepo, log),
		Fees:       fees.NewHandlers(feeRepo, log),
		Pricing:    pricing.NewHandlers(storeOracle, oracle, log),
		Indicators: indicators.NewHandlers(log),
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
