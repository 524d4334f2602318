package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/database"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/worker"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Only report how many results are parked")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	dead, err := rdb.LLen(ctx, config.WorkerKey.PersistResultsDead).Result()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read dead-letter list")
	}
	retrying, _ := rdb.ZCard(ctx, config.WorkerKey.PersistResultsRetry).Result()
	fmt.Printf("=== %d dead, %d waiting for retry ===\n", dead, retrying)
	if *dryRun || dead == 0 {
		return
	}

	moved, err := worker.NewResultWorker(nil, rdb, log).RedriveDead(ctx)
	if err != nil {
		log.Fatal().Err(err).Int("moved", moved).Msg("Redrive interrupted")
	}
	fmt.Printf("Requeued %d results\n", moved)
}
