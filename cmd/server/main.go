package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/adapter/events/kafka"
	httpAdapter "github.com/iho/custody/internal/adapter/http"
	"github.com/iho/custody/internal/adapter/http/handler"
	"github.com/iho/custody/internal/adapter/payout"
	"github.com/iho/custody/internal/adapter/randomness"
	postgresRepo "github.com/iho/custody/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/custody/internal/adapter/repository/redis"
	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/infrastructure/auth"
	"github.com/iho/custody/internal/infrastructure/config"
	"github.com/iho/custody/internal/infrastructure/eventpublisher"
	"github.com/iho/custody/internal/infrastructure/logger"
	"github.com/iho/custody/internal/infrastructure/metrics"
	"github.com/iho/custody/internal/infrastructure/postgres"
	"github.com/iho/custody/internal/infrastructure/redis"
	"github.com/iho/custody/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup loggers. HTTP access logs go through zerolog, background
	// workers use slog.
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slogger := newSlog(cfg.LogFormat)

	ctx := context.Background()

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations applied")

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	roundRepo := postgresRepo.NewRoundRepository(pool)
	stakeRepo := postgresRepo.NewStakeRepository(pool)
	custodyRepo := postgresRepo.NewCustodyRepository(pool)
	paramsRepo := postgresRepo.NewParamsRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Seed custody parameters and the first draw round
	owner, err := domain.ParseAddress(cfg.OwnerAddress)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid owner address")
	}
	if err := paramsRepo.Seed(ctx, owner, cfg.DefaultRewardRateBps); err != nil {
		log.Fatal().Err(err).Msg("failed to seed custody parameters")
	}
	if err := ensureOpenRound(ctx, txManager, roundRepo, cfg.DefaultEntryFee); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure open draw round")
	}

	// Payout gateway
	var transferer usecase.Transferer
	if cfg.PayoutURL != "" {
		transferer = payout.NewGateway(cfg.PayoutURL, cfg.PayoutTimeout, slogger)
		log.Info().Str("url", cfg.PayoutURL).Msg("using payout gateway")
	} else {
		transferer = payout.NewLogTransferer(slogger)
		log.Warn().Msg("no payout url configured, logging transfers instead")
	}

	clock := usecase.SystemClock{}
	picker := randomness.NewCryptoPicker()

	// Initialize use cases
	lockUC := usecase.NewLockUseCase(txManager, entryRepo, custodyRepo, outboxRepo, auditRepo, idGen, clock, transferer, m)
	drawUC := usecase.NewDrawUseCase(txManager, entryRepo, roundRepo, custodyRepo, paramsRepo, outboxRepo, auditRepo, idGen, clock, transferer, picker, cache, m)
	stakeUC := usecase.NewStakeUseCase(txManager, stakeRepo, custodyRepo, paramsRepo, outboxRepo, auditRepo, idGen, clock, transferer, m)
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo)

	// Authentication
	var tokenManager *auth.TokenManager
	var authHandler *handler.AuthHandler
	if cfg.AuthEnabled && cfg.JWTSecret != "" {
		tokenManager = auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)
		authHandler = handler.NewAuthHandler(tokenManager)
		log.Info().Msg("jwt authentication enabled")
	} else {
		log.Warn().Msg("jwt authentication disabled, trusting the caller header")
	}

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LockHandler:      handler.NewLockHandler(lockUC),
		DrawHandler:      handler.NewDrawHandler(drawUC),
		StakeHandler:     handler.NewStakeHandler(stakeUC),
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC, auditRepo),
		AuthHandler:      authHandler,
		HealthHandler:    handler.NewHealthHandler(pool, redisClient),
		TokenManager:     tokenManager,
		IdempotencyStore: idempotencyStore,
		RateLimit:        cfg.RateLimitRPS,
		RateBurst:        cfg.RateLimitBurst,
	})

	// Outbox publisher worker
	var publisher eventpublisher.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
	} else {
		publisher = eventpublisher.NewLogPublisher(slogger)
		log.Warn().Msg("no kafka brokers configured, logging events instead")
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	eventWorker := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Logger:     slogger,
		Metrics:    m,
	})
	go func() {
		if err := eventWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopWorkers()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// ensureOpenRound creates round 1 on a fresh database so the draw pool
// can accept entrants immediately.
func ensureOpenRound(ctx context.Context, txManager usecase.TransactionManager, roundRepo *postgresRepo.RoundRepository, defaultFee string) error {
	_, err := roundRepo.GetOpen(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrRoundNotFound) {
		return err
	}

	fee, err := decimal.NewFromString(defaultFee)
	if err != nil {
		return fmt.Errorf("invalid default entry fee: %w", err)
	}

	tx, err := txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	round := &domain.Round{
		Number:    1,
		EntryFee:  fee,
		Status:    domain.RoundStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := roundRepo.Create(ctx, tx, round); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func newSlog(format string) *slog.Logger {
	if format == "console" {
		return slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
