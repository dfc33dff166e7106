package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/mcq-exam/internal/bank"
	"github.com/stemsi/mcq-exam/internal/config"
	"github.com/stemsi/mcq-exam/internal/database"
	"github.com/stemsi/mcq-exam/internal/logger"
	"github.com/stemsi/mcq-exam/internal/repository"
	"github.com/stemsi/mcq-exam/internal/service"
	"github.com/stemsi/mcq-exam/internal/validator"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: seed-exam <bank.yaml> [more.yaml ...]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	cache := service.NewRedisPaperCache(rdb, cfg.ExamCacheTTL)
	examService := service.NewExamService(examRepo, questionRepo, cache, log)
	questionService := service.NewQuestionService(examRepo, questionRepo, cache, log)

	failed := 0
	for _, path := range flag.Args() {
		if err := seed(ctx, path, examService, questionService); err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to seed exam")
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func seed(ctx context.Context, path string, exams *service.ExamService, questions *service.QuestionService) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := bank.Parse(f)
	if err != nil {
		return err
	}
	exam, err := bank.Load(ctx, b, exams, questions)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %q (%s): %d questions, active=%t\n", exam.Title, exam.ID, len(b.Questions), exam.IsActive)
	return nil
}
