package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/config"
	"github.com/stemsi/mcq-exam/internal/database"
	"github.com/stemsi/mcq-exam/internal/handler"
	"github.com/stemsi/mcq-exam/internal/logger"
	"github.com/stemsi/mcq-exam/internal/repository"
	"github.com/stemsi/mcq-exam/internal/router"
	"github.com/stemsi/mcq-exam/internal/service"
	"github.com/stemsi/mcq-exam/internal/validator"
	"github.com/stemsi/mcq-exam/internal/worker"
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
		Msg("Starting MCQ exam server")

	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		log.Warn().Msg("Neither ADMIN_PASSWORD nor ADMIN_PASSWORD_HASH is set; admin login is disabled")
	}

	exportLoc, err := time.LoadLocation(cfg.ExportTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.ExportTimezone).Msg("Invalid EXPORT_TIMEZONE")
	}

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

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	integrityRepo := repository.NewIntegrityRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	paperCache := service.NewRedisPaperCache(rdb, cfg.ExamCacheTTL)
	monitor := service.NewRedisMonitor(rdb)

	authService := service.NewAuthService(cfg)
	examService := service.NewExamService(examRepo, questionRepo, paperCache, log)
	questionService := service.NewQuestionService(examRepo, questionRepo, paperCache, log)
	scoringService := service.NewScoringService(examRepo, questionRepo, resultRepo, monitor, log)
	resultService := service.NewResultService(resultRepo, questionRepo, log)
	dashboardService := service.NewDashboardService(dashboardRepo)
	monitorService := service.NewMonitorService(resultRepo, integrityRepo)
	integrityService := service.NewIntegrityService(service.NewRedisIntegrityQueue(rdb), monitor, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Exam:      handler.NewExamHandler(examService, log),
		Submit:    handler.NewSubmitHandler(scoringService, log),
		Question:  handler.NewQuestionHandler(questionService, log),
		Result:    handler.NewResultHandler(resultService, exportLoc, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
		Monitor:   handler.NewMonitorHandler(examService, monitorService, monitor, log),
		WS:        handler.NewWSHandler(examService, integrityService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	integrityWorker := worker.NewIntegrityWorker(
		worker.NewRedisEventQueue(rdb),
		worker.NewPostgresEventStore(pool),
		log,
	)
	workers.Go(func() { integrityWorker.Start(workerCtx) })

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	if n, err := examService.PrewarmPapers(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	} else {
		log.Info().Int("papers", n).Msg("Exam papers prewarmed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

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

	// 1. Stop accepting new HTTP requests. SSE streams end with their requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the integrity worker and wait for its final flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
