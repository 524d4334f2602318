package provider

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/model"
)

// CachedBank is a read-through redis cache in front of another Bank. Redis failures
// degrade to the underlying bank and never fail a lookup.
type CachedBank struct {
	inner Bank
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedBank wraps inner with a redis cache holding each specialization for ttl.
func NewCachedBank(inner Bank, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedBank {
	return &CachedBank{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   logger.Component(log, "bank_cache"),
	}
}

// ListBySpecialization implements Bank.
func (b *CachedBank) ListBySpecialization(ctx context.Context, specialization string) ([]model.Question, error) {
	key := config.CacheKey.QuestionBankKey(specialization)

	raw, err := b.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var questions []model.Question
		if jsonErr := json.Unmarshal(raw, &questions); jsonErr == nil {
			return questions, nil
		}
		b.log.Warn().Str("key", key).Msg("Discarding malformed cached bank entry")
	case !errors.Is(err, redis.Nil):
		b.log.Warn().Err(err).Str("key", key).Msg("Bank cache read failed")
	}

	questions, err := b.inner.ListBySpecialization(ctx, specialization)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(questions); err == nil {
		if err := b.rdb.Set(ctx, key, payload, b.ttl).Err(); err != nil {
			b.log.Warn().Err(err).Str("key", key).Msg("Bank cache write failed")
		}
	}
	return questions, nil
}

// Invalidate drops the cached entry for specialization.
func (b *CachedBank) Invalidate(ctx context.Context, specialization string) error {
	return b.rdb.Del(ctx, config.CacheKey.QuestionBankKey(specialization)).Err()
}
