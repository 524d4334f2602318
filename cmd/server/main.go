package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/database"
	"github.com/stemsi/exstem-prep/internal/handler"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/middleware"
	"github.com/stemsi/exstem-prep/internal/provider"
	"github.com/stemsi/exstem-prep/internal/repository"
	"github.com/stemsi/exstem-prep/internal/router"
	"github.com/stemsi/exstem-prep/internal/service"
	"github.com/stemsi/exstem-prep/internal/validator"
	"github.com/stemsi/exstem-prep/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Prep")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Question Bank ─────────────────────────────────────────────────
	var bank provider.Bank
	if cfg.QuestionBankFile != "" {
		mem, err := provider.LoadBankFile(cfg.QuestionBankFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.QuestionBankFile).Msg("Failed to load question bank")
		}
		log.Info().Str("file", cfg.QuestionBankFile).Int("questions", mem.Len()).Msg("Question bank loaded from file")
		bank = mem
	} else {
		questionRepo := repository.NewQuestionRepository(pool)
		if counts, err := questionRepo.CountBySpecialization(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to count questions")
		} else {
			log.Info().Interface("questions", counts).Msg("Question bank loaded from PostgreSQL")
		}
		bank = provider.NewCachedBank(questionRepo, rdb, cfg.BankCacheTTL, log)
	}

	// ─── Providers ─────────────────────────────────────────────────────
	seed := time.Now().UnixNano()
	questions := provider.NewRouter(
		provider.NewPreset(bank),
		provider.NewRandom(bank, rand.NewSource(seed)),
		provider.NewGenerated(bank, provider.NewMixGenerator(rand.NewSource(seed+1)), cfg.GeneratorModels),
	)

	// ─── Results ───────────────────────────────────────────────────────
	resultRepo := repository.NewResultRepository(pool)
	resultQueue := worker.NewResultQueue(rdb, resultRepo, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTIssuer)
	sessionService := service.NewSessionService(questions, resultQueue, resultRepo, service.SessionServiceConfig{
		SecondsPerQuestion: cfg.SecondsPerQuestion,
		TickInterval:       cfg.TickInterval,
		ProviderTimeout:    cfg.ProviderTimeout,
		MaxLivePerUser:     cfg.MaxLiveSessionsPerUser,
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService),
		WS:      handler.NewWSHandler(sessionService, cfg.TickInterval, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(pool, rdb, sessionService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	resultWorker := worker.NewResultWorker(resultRepo, rdb, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		resultWorker.Start(workerCtx)
	}()

	var startLimiter *middleware.RateLimiter
	if cfg.StartRateLimit > 0 {
		startLimiter = middleware.NewRateLimiter(cfg.StartRateLimit, time.Minute)
		go startLimiter.RunCleanup(workerCtx)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, startLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop session clocks. Unsubmitted sessions are discarded.
	if err := sessionService.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Session shutdown error")
	}

	// 3. Stop background workers and wait for the result queue to drain.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Result worker did not stop in time")
	}

	log.Info().Msg("Server exited cleanly")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
