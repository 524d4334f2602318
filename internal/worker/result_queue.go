package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/model"
)

// ResultStore persists submitted results.
type ResultStore interface {
	Upsert(ctx context.Context, rec model.ResultRecord) error
	UpsertMany(ctx context.Context, recs []model.ResultRecord) error
}

// ResultQueue publishes submitted results to redis for the ResultWorker.
// When the push fails and a direct store is configured, the result is written through.
type ResultQueue struct {
	rdb    *redis.Client
	direct ResultStore
	log    zerolog.Logger
}

// NewResultQueue creates a ResultQueue. direct may be nil.
func NewResultQueue(rdb *redis.Client, direct ResultStore, log zerolog.Logger) *ResultQueue {
	return &ResultQueue{
		rdb:    rdb,
		direct: direct,
		log:    logger.Component(log, "result_queue"),
	}
}

// Publish enqueues the result of userID's session.
func (q *ResultQueue) Publish(ctx context.Context, userID int, res model.SessionResult) error {
	rec := model.ResultRecord{UserID: userID, SessionResult: res}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	pushErr := q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err()
	if pushErr == nil {
		return nil
	}
	if q.direct == nil {
		return fmt.Errorf("enqueue result: %w", pushErr)
	}

	q.log.Warn().Err(pushErr).Str("session_id", res.SessionID.String()).Msg("Queue unavailable, writing result directly")
	if err := q.direct.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}
	return nil
}
