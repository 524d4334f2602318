package worker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/model"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
	// MaxResultAttempts is how many failed upserts a result survives before it is
	// parked on the dead-letter list.
	MaxResultAttempts = 5
	// ResultRetryBase is the delay after the first failure. It doubles per attempt
	// up to ResultRetryMax.
	ResultRetryBase = 10 * time.Second
	ResultRetryMax  = 5 * time.Minute

	promoteBatch = 100
)

// ResultWorker drains persist_results_queue into the result store in batches.
// Failed results wait in persist_results_retry until their backoff is due.
type ResultWorker struct {
	store ResultStore
	rdb   *redis.Client
	log   zerolog.Logger
	now   func() time.Time
}

func NewResultWorker(store ResultStore, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		store: store,
		rdb:   rdb,
		log:   logger.Component(log, "result_worker"),
		now:   time.Now,
	}
}

// Start runs until ctx is cancelled, then flushes whatever is buffered.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]model.ResultRecord, 0, ResultBatchSize)
	lastFlush := time.Now()
	var lastPromote time.Time

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		if time.Since(lastPromote) >= ResultPollTimeout {
			if _, err := w.promoteDue(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn().Err(err).Msg("Retry promotion failed")
			}
			lastPromote = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(ResultPollTimeout)
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var rec model.ResultRecord
			if err := json.Unmarshal([]byte(item[1]), &rec); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, rec)
		}
	}
}

// flushSafe writes batch in bulk, falling back to one row at a time. Rows that still
// fail are scheduled for a delayed retry, or dead-lettered once out of attempts.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []model.ResultRecord) {
	if len(batch) == 0 {
		return
	}

	err := w.store.UpsertMany(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Results persisted")
		return
	}
	w.log.Warn().Err(err).Msg("bulk result upsert failed, using fallback")

	for _, rec := range batch {
		err := w.store.Upsert(ctx, rec)
		if err == nil {
			continue
		}
		rec.Attempts++
		w.log.Error().Err(err).
			Str("session_id", rec.SessionID.String()).
			Int("attempts", rec.Attempts).
			Str("queue", requeueKey(rec)).
			Msg("Upsert failed, requeueing")

		if err := w.requeue(ctx, rec); err != nil {
			w.log.Error().Err(err).Str("session_id", rec.SessionID.String()).Msg("Requeue failed, result dropped")
		}
	}
}

func (w *ResultWorker) requeue(ctx context.Context, rec model.ResultRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if requeueKey(rec) == config.WorkerKey.PersistResultsDead {
		return w.rdb.RPush(ctx, config.WorkerKey.PersistResultsDead, raw).Err()
	}
	due := w.now().Add(retryDelay(rec.Attempts))
	return w.rdb.ZAdd(ctx, config.WorkerKey.PersistResultsRetry, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: raw,
	}).Err()
}

// promoteDue moves retry entries whose due time has passed back onto the queue.
// ZRem decides ownership, so concurrent workers never push the same entry twice.
func (w *ResultWorker) promoteDue(ctx context.Context) (int, error) {
	due, err := w.rdb.ZRangeByScore(ctx, config.WorkerKey.PersistResultsRetry, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(w.now().UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, raw := range due {
		n, err := w.rdb.ZRem(ctx, config.WorkerKey.PersistResultsRetry, raw).Result()
		if err != nil {
			return moved, err
		}
		if n == 0 {
			continue
		}
		if err := w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		w.log.Info().Int("count", moved).Msg("Retrying results")
	}
	return moved, nil
}

// RedriveDead moves every dead-lettered result back onto the queue with its attempt
// count reset.
func (w *ResultWorker) RedriveDead(ctx context.Context) (int, error) {
	moved := 0
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistResultsDead).Result()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}

		var rec model.ResultRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			w.log.Error().Err(err).Msg("Invalid dead-letter payload, discarded")
			continue
		}
		rec.Attempts = 0
		out, _ := json.Marshal(rec)
		if err := w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, out).Err(); err != nil {
			// Put it back so it is not lost.
			_ = w.rdb.LPush(ctx, config.WorkerKey.PersistResultsDead, raw).Err()
			return moved, err
		}
		moved++
	}
}

// requeueKey picks where a failed record goes next.
func requeueKey(rec model.ResultRecord) string {
	if rec.Attempts >= MaxResultAttempts {
		return config.WorkerKey.PersistResultsDead
	}
	return config.WorkerKey.PersistResultsRetry
}

// retryDelay is the wait before attempt+1.
func retryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := ResultRetryBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= ResultRetryMax {
			return ResultRetryMax
		}
	}
	return d
}
