package config

import "fmt"

// CacheKeys builds keys for cached, expiring values.
type CacheKeys struct{}

// QuestionBankKey returns the cache key for a specialization's question pool.
func (CacheKeys) QuestionBankKey(specialization string) string {
	return fmt.Sprintf("bank:%s:questions", specialization)
}

// WorkerKeys names the redis keys used by background workers.
type WorkerKeys struct {
	PersistResultsQueue string
	// PersistResultsRetry is a sorted set of failed results scored by their due time.
	PersistResultsRetry string
	// PersistResultsDead holds results that kept failing to persist.
	PersistResultsDead string
}

var (
	CacheKey  CacheKeys
	WorkerKey = WorkerKeys{
		PersistResultsQueue: "persist_results_queue",
		PersistResultsRetry: "persist_results_retry",
		PersistResultsDead:  "persist_results_dead",
	}
)
