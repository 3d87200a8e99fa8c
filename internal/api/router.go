package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/middleware"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/service"
)

// Services groups the services the HTTP layer depends on.
type Services struct {
	System      *service.SystemService
	User        *service.UserService
	Auth        *service.AuthService
	Price       *service.PriceService
	Transaction *service.TransactionService
	Portfolio   *service.PortfolioService
	Valuation   *service.ValuationService
	Alert       *service.AlertService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, logger *logging.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	limiter := custommiddleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.GetWindow())
	authenticate := custommiddleware.Authenticate(svc.Auth)

	systemHandler := handlers.NewSystemHandler(svc.System)
	userHandler := handlers.NewUserHandler(svc.User, svc.Auth, cfg.Auth.GetAccessTokenTTL(), cfg.Auth.SecureCookies)
	priceHandler := handlers.NewPriceHandler(svc.Price, cfg.Prices.DefaultCurrency)
	transactionHandler := handlers.NewTransactionHandler(svc.Transaction)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio, svc.Valuation)
	alertHandler := handlers.NewAlertHandler(svc.Alert)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler)

		// System namespace
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/refresh", userHandler.Refresh)
			r.Post("/forgot-password", userHandler.ForgotPassword)
			r.Post("/reset-password", userHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/logout", userHandler.Logout)
				r.Get("/me", userHandler.Me)
				r.Put("/me/preferences", userHandler.UpdatePreferences)
				r.Get("/portfolio", portfolioHandler.Portfolio)

				r.Route("/alerts", func(r chi.Router) {
					r.Get("/", alertHandler.GetAlerts)
					r.Put("/", alertHandler.SetAlert)
					r.Get("/evaluate", alertHandler.Evaluate)
					r.Get("/history", alertHandler.History)
					r.With(custommiddleware.ValidateSymbolMiddleware).Delete("/{symbol}", alertHandler.DeleteAlert)
				})

				r.With(custommiddleware.RequireRole(model.RoleAdmin)).Get("/", userHandler.ListUsers)
			})
		})

		r.Route("/crypto", func(r chi.Router) {
			r.Get("/prices", priceHandler.GetPrices)
			r.Get("/prices/cached", priceHandler.CachedPrices)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/portfolio/pnl", portfolioHandler.ProfitAndLoss)
				r.Get("/transactions", transactionHandler.ListTransactions)
				r.Post("/transactions", transactionHandler.CreateTransaction)
				r.With(custommiddleware.ValidateUUIDMiddleware).Get("/transactions/{uuid}", transactionHandler.GetTransaction)
				r.Post("/transfer", transactionHandler.Transfer)
			})
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/holdings", portfolioHandler.Holdings)
			r.Get("/lots", portfolioHandler.OpenLots)
			r.Get("/tax-report", portfolioHandler.TaxReport)
			r.Delete("/", portfolioHandler.DeleteSymbol)
		})
	})

	return r
}
