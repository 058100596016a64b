package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iho/custody/internal/adapter/http/handler"
	"github.com/iho/custody/internal/adapter/http/middleware"
	"github.com/iho/custody/internal/infrastructure/auth"
	"github.com/iho/custody/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LockHandler      *handler.LockHandler
	DrawHandler      *handler.DrawHandler
	StakeHandler     *handler.StakeHandler
	LedgerHandler    *handler.LedgerHandler
	AuthHandler      *handler.AuthHandler
	HealthHandler    *handler.HealthHandler
	TokenManager     *auth.TokenManager
	IdempotencyStore usecase.IdempotencyStore
	RateLimit        float64
	RateBurst        int
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
		r.Use(limiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenManager != nil {
			callerMiddleware := middleware.NewCallerMiddleware(cfg.TokenManager)
			r.Use(callerMiddleware.Wrap)
		} else {
			r.Use(middleware.CallerHeader)
		}
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		if cfg.AuthHandler != nil {
			r.Post("/auth/token", cfg.AuthHandler.Token)
		}

		// Time locks
		r.Route("/locks", func(r chi.Router) {
			r.Post("/", cfg.LockHandler.Create)
			r.Get("/", cfg.LockHandler.List)
			r.Get("/total", cfg.LockHandler.Total)
			r.Get("/{id}", cfg.LockHandler.Get)
			r.Get("/{id}/status", cfg.LockHandler.Status)
			r.With(middleware.RequireCaller).Post("/{id}/withdraw", cfg.LockHandler.Withdraw)
			r.With(middleware.RequireCaller).Post("/{id}/extend", cfg.LockHandler.Extend)
			r.With(middleware.RequireCaller).Post("/withdraw", cfg.LockHandler.BatchWithdraw)
		})

		// Draw
		r.Route("/draw", func(r chi.Router) {
			r.Get("/round", cfg.DrawHandler.CurrentRound)
			r.Get("/pool", cfg.DrawHandler.Pool)
			r.Get("/prize", cfg.DrawHandler.PrizePool)
			r.Get("/rounds/{number}/winner", cfg.DrawHandler.Winner)
			r.With(middleware.RequireCaller).Post("/enter", cfg.DrawHandler.Enter)
			r.With(middleware.RequireCaller).Post("/pick", cfg.DrawHandler.PickWinner)
			r.With(middleware.RequireCaller).Post("/fee", cfg.DrawHandler.SetEntryFee)
		})

		// Accrual
		r.Route("/stakes", func(r chi.Router) {
			r.Get("/total", cfg.StakeHandler.Total)
			r.Get("/{address}", cfg.StakeHandler.Get)
			r.Get("/{address}/reward", cfg.StakeHandler.Reward)
			r.With(middleware.RequireCaller).Post("/", cfg.StakeHandler.Stake)
			r.With(middleware.RequireCaller).Post("/claim", cfg.StakeHandler.Claim)
			r.With(middleware.RequireCaller).Post("/unstake", cfg.StakeHandler.Unstake)
			r.With(middleware.RequireCaller).Post("/rate", cfg.StakeHandler.SetRewardRate)
			r.With(middleware.RequireCaller).Post("/fund", cfg.StakeHandler.FundRewards)
			r.With(middleware.RequireCaller).Post("/emergency-withdraw", cfg.StakeHandler.EmergencyWithdraw)
		})

		// Ledger
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/consistency", cfg.LedgerHandler.Consistency)
			r.Get("/audit", cfg.LedgerHandler.AuditLogs)
		})
	})

	return r
}
