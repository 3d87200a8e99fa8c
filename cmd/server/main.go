package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/auth"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/coingecko"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/database"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/mail"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/scheduler"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	log.Logger = logger.Logger

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o750); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create database directory")
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}
	logger.Info().Str("path", cfg.Database.Path).Msg("Connected to database")

	// Collaborators
	priceClient := coingecko.NewClient(
		coingecko.WithBaseURL(cfg.Prices.BaseURL),
		coingecko.WithAPIKey(cfg.Prices.APIKey),
		coingecko.WithTimeout(cfg.Prices.GetTimeout()),
		coingecko.WithRateLimit(cfg.Prices.RateLimit),
		coingecko.WithLogger(logger),
	)
	mailer := mail.New(cfg.Mail, logger)
	tokens := auth.NewTokenIssuer(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.GetAccessTokenTTL(),
		cfg.Auth.GetRefreshTokenTTL(),
	)
	resetTokens, err := auth.NewResetTokens(cfg.Auth.ResetTokenKey, cfg.Auth.GetResetTokenTTL())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up reset tokens")
	}
	if cfg.Auth.ResetTokenKey == "" {
		logger.Warn().Msg("RESET_TOKEN_KEY not set, password reset links will not survive a restart")
	}

	// Create repositories
	userRepo := repository.NewUserRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Create services
	priceService := service.NewPriceService(
		priceClient,
		cfg.Prices.GetCacheTTL(),
		cfg.Prices.TrackedSymbols,
		cfg.Prices.DefaultCurrency,
		logger,
	)
	alertService := service.NewAlertService(userRepo, alertRepo, priceService, mailer, logger, cfg.Alerts.Concurrency)
	services := api.Services{
		System: service.NewSystemService(db, map[string]bool{
			"mail":         cfg.Mail.Enabled(),
			"price_alerts": cfg.Alerts.Schedule != "",
		}),
		User:        service.NewUserService(userRepo, cfg.Auth.BcryptCost, cfg.Prices.DefaultCurrency, logger),
		Auth:        service.NewAuthService(userRepo, tokens, resetTokens, mailer, cfg.Auth.ClientURL, cfg.Auth.BcryptCost, logger),
		Price:       priceService,
		Transaction: service.NewTransactionService(db, userRepo, transactionRepo, holdingRepo, priceService, logger),
		Portfolio:   service.NewPortfolioService(userRepo, transactionRepo, holdingRepo, priceService, logger),
		Valuation:   service.NewValuationService(userRepo, transactionRepo, priceService),
		Alert:       alertService,
	}

	// Background jobs
	jobs := scheduler.New(logger, cfg.Alerts.GetJobTimeout())
	if cfg.Prices.RefreshSchedule != "" {
		if err := jobs.Add("price-refresh", cfg.Prices.RefreshSchedule, priceService.Refresh); err != nil {
			logger.Fatal().Err(err).Msg("Failed to schedule price refresh")
		}
	}
	if cfg.Alerts.Schedule != "" {
		if err := jobs.Add("price-alerts", cfg.Alerts.Schedule, func(ctx context.Context) error {
			_, err := alertService.RunCycle(ctx)
			return err
		}); err != nil {
			logger.Fatal().Err(err).Msg("Failed to schedule price alerts")
		}
	}
	jobs.Start()

	// Create router
	router := api.NewRouter(services, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("version", version.Version).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	jobs.Stop(ctx)

	logger.Info().Msg("Server exited")
}
