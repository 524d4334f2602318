package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/database"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/provider"
	"github.com/stemsi/exstem-prep/internal/repository"
)

func main() {
	file := flag.String("file", "questions.yaml", "YAML question bank to import")
	dryRun := flag.Bool("dry-run", false, "Validate the file without writing")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read question bank")
	}
	questions, err := provider.ParseBank(data)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Invalid question bank")
	}

	perSpec := make(map[string]int)
	for _, q := range questions {
		perSpec[q.Specialization]++
	}
	fmt.Printf("=== %d questions in %s ===\n", len(questions), *file)
	for _, spec := range model.Specializations {
		fmt.Printf("  %-10s %d\n", spec, perSpec[spec])
	}
	if *dryRun {
		return
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)
	n, err := questionRepo.InsertMany(ctx, questions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert questions")
	}
	fmt.Printf("Upserted %d questions\n", n)

	// Drop cached pools so running servers pick up the new questions.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached pools expire on their own")
		return
	}
	defer rdb.Close()

	cached := provider.NewCachedBank(questionRepo, rdb, cfg.BankCacheTTL, log)
	for spec := range perSpec {
		if err := cached.Invalidate(ctx, spec); err != nil {
			log.Warn().Err(err).Str("specialization", spec).Msg("Failed to invalidate cache")
		}
	}
	fmt.Println("Cache invalidated")
}
