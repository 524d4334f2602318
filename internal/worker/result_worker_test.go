package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/model"
)

type fakeStore struct {
	mu       sync.Mutex
	bulkErr  error
	badIDs   map[uuid.UUID]bool
	bulk     int
	bulkRecs int
	singles  []model.ResultRecord
}

func (f *fakeStore) UpsertMany(ctx context.Context, recs []model.ResultRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulk++
	if f.bulkErr == nil {
		f.bulkRecs += len(recs)
	}
	return f.bulkErr
}

func (f *fakeStore) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bulkRecs + len(f.singles)
}

func (f *fakeStore) Upsert(ctx context.Context, rec model.ResultRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.badIDs[rec.SessionID] {
		return errors.New("constraint violation")
	}
	f.singles = append(f.singles, rec)
	return nil
}

// deadRedis returns a client whose commands fail fast.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func records(n int) []model.ResultRecord {
	out := make([]model.ResultRecord, n)
	for i := range out {
		out[i] = model.ResultRecord{UserID: i + 1, SessionResult: model.SessionResult{SessionID: uuid.New()}}
	}
	return out
}

func TestFlushSafeBulk(t *testing.T) {
	store := &fakeStore{}
	rdb := deadRedis()
	defer rdb.Close()
	w := NewResultWorker(store, rdb, zerolog.Nop())

	w.flushSafe(context.Background(), records(3))

	if store.bulk != 1 || len(store.singles) != 0 {
		t.Fatalf("bulk = %d singles = %d, want 1 0", store.bulk, len(store.singles))
	}
}

func TestFlushSafeFallsBackToSingles(t *testing.T) {
	recs := records(3)
	store := &fakeStore{
		bulkErr: errors.New("deadlock detected"),
		badIDs:  map[uuid.UUID]bool{recs[1].SessionID: true},
	}
	rdb := deadRedis()
	defer rdb.Close()
	w := NewResultWorker(store, rdb, zerolog.Nop())

	w.flushSafe(context.Background(), recs)

	if len(store.singles) != 2 {
		t.Fatalf("singles = %d, want 2", len(store.singles))
	}
	for _, rec := range store.singles {
		if rec.SessionID == recs[1].SessionID {
			t.Fatal("failing record reported as stored")
		}
	}
}

func TestFlushSafeEmptyBatch(t *testing.T) {
	store := &fakeStore{}
	rdb := deadRedis()
	defer rdb.Close()
	NewResultWorker(store, rdb, zerolog.Nop()).flushSafe(context.Background(), nil)
	if store.bulk != 0 {
		t.Fatal("empty batch reached the store")
	}
}

func TestResultQueueWritesThroughWhenRedisDown(t *testing.T) {
	store := &fakeStore{}
	rdb := deadRedis()
	defer rdb.Close()
	q := NewResultQueue(rdb, store, zerolog.Nop())

	res := model.SessionResult{SessionID: uuid.New(), CorrectCount: 4, Percentage: 40}
	if err := q.Publish(context.Background(), 7, res); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(store.singles) != 1 || store.singles[0].UserID != 7 || store.singles[0].Percentage != 40 {
		t.Fatalf("singles = %+v", store.singles)
	}
}

func TestResultQueueWithoutFallback(t *testing.T) {
	rdb := deadRedis()
	defer rdb.Close()
	q := NewResultQueue(rdb, nil, zerolog.Nop())
	if err := q.Publish(context.Background(), 1, model.SessionResult{SessionID: uuid.New()}); err == nil {
		t.Fatal("expected error with redis down and no fallback")
	}
}

func TestRequeueKey(t *testing.T) {
	tests := []struct {
		attempts int
		want     string
	}{
		{1, config.WorkerKey.PersistResultsRetry},
		{MaxResultAttempts - 1, config.WorkerKey.PersistResultsRetry},
		{MaxResultAttempts, config.WorkerKey.PersistResultsDead},
		{MaxResultAttempts + 3, config.WorkerKey.PersistResultsDead},
	}
	for _, tt := range tests {
		if got := requeueKey(model.ResultRecord{Attempts: tt.attempts}); got != tt.want {
			t.Errorf("requeueKey(attempts=%d) = %q, want %q", tt.attempts, got, tt.want)
		}
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, ResultRetryBase},
		{1, ResultRetryBase},
		{2, 2 * ResultRetryBase},
		{4, 8 * ResultRetryBase},
		{20, ResultRetryMax},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.attempts); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

// newRedisWorker returns a worker on an in-process redis with a settable clock.
func newRedisWorker(t *testing.T, store ResultStore) (*ResultWorker, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w := NewResultWorker(store, rdb, zerolog.Nop())
	w.now = func() time.Time { return now }
	return w, mr, &now
}

func decodeList(t *testing.T, mr *miniredis.Miniredis, key string) []model.ResultRecord {
	t.Helper()
	if !mr.Exists(key) {
		return nil
	}
	raw, err := mr.List(key)
	if err != nil {
		t.Fatalf("List(%s): %v", key, err)
	}
	out := make([]model.ResultRecord, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal([]byte(r), &out[i]); err != nil {
			t.Fatalf("decode %s: %v", key, err)
		}
	}
	return out
}

func TestFailedResultWaitsForBackoff(t *testing.T) {
	recs := records(1)
	store := &fakeStore{bulkErr: errors.New("db down"), badIDs: map[uuid.UUID]bool{recs[0].SessionID: true}}
	w, mr, now := newRedisWorker(t, store)
	ctx := context.Background()

	w.flushSafe(ctx, recs)

	if got := decodeList(t, mr, config.WorkerKey.PersistResultsQueue); len(got) != 0 {
		t.Fatalf("failed result went straight back to the queue: %d", len(got))
	}
	members, err := mr.ZMembers(config.WorkerKey.PersistResultsRetry)
	if err != nil || len(members) != 1 {
		t.Fatalf("retry set = %v (err %v), want 1 entry", members, err)
	}

	*now = now.Add(retryDelay(1) - time.Second)
	if n, err := w.promoteDue(ctx); err != nil || n != 0 {
		t.Fatalf("promoted %d before due (err %v)", n, err)
	}

	*now = now.Add(time.Second)
	if n, err := w.promoteDue(ctx); err != nil || n != 1 {
		t.Fatalf("promoted %d when due, want 1 (err %v)", n, err)
	}
	queued := decodeList(t, mr, config.WorkerKey.PersistResultsQueue)
	if len(queued) != 1 || queued[0].Attempts != 1 || queued[0].SessionID != recs[0].SessionID {
		t.Fatalf("queue = %+v", queued)
	}
	if mr.Exists(config.WorkerKey.PersistResultsRetry) {
		t.Fatal("retry entry not removed")
	}
}

func TestExhaustedResultIsDeadLettered(t *testing.T) {
	recs := records(1)
	recs[0].Attempts = MaxResultAttempts - 1
	store := &fakeStore{bulkErr: errors.New("db down"), badIDs: map[uuid.UUID]bool{recs[0].SessionID: true}}
	w, mr, _ := newRedisWorker(t, store)

	w.flushSafe(context.Background(), recs)

	dead := decodeList(t, mr, config.WorkerKey.PersistResultsDead)
	if len(dead) != 1 || dead[0].Attempts != MaxResultAttempts {
		t.Fatalf("dead = %+v", dead)
	}
	if mr.Exists(config.WorkerKey.PersistResultsRetry) {
		t.Fatal("exhausted result scheduled for retry")
	}
}

func TestRedriveDead(t *testing.T) {
	w, mr, _ := newRedisWorker(t, &fakeStore{})
	for _, rec := range records(2) {
		rec.Attempts = MaxResultAttempts
		raw, _ := json.Marshal(rec)
		mr.RPush(config.WorkerKey.PersistResultsDead, string(raw))
	}
	mr.RPush(config.WorkerKey.PersistResultsDead, "{not json")

	n, err := w.RedriveDead(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("RedriveDead = %d, %v; want 2", n, err)
	}
	queued := decodeList(t, mr, config.WorkerKey.PersistResultsQueue)
	if len(queued) != 2 {
		t.Fatalf("queue len = %d, want 2", len(queued))
	}
	for _, rec := range queued {
		if rec.Attempts != 0 {
			t.Fatalf("attempts not reset: %+v", rec)
		}
	}
	if mr.Exists(config.WorkerKey.PersistResultsDead) {
		t.Fatal("dead list not drained")
	}
}

func TestWorkerDrainsQueue(t *testing.T) {
	store := &fakeStore{}
	w, _, _ := newRedisWorker(t, store)
	q := NewResultQueue(w.rdb, nil, zerolog.Nop())
	for i := 0; i < 3; i++ {
		if err := q.Publish(context.Background(), i+1, model.SessionResult{SessionID: uuid.New()}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for store.stored() < 3 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done
	if got := store.stored(); got != 3 {
		t.Fatalf("stored = %d, want 3", got)
	}
}
