package provider

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/model"
)

// Random samples Count bank questions uniformly without replacement and in random order.
type Random struct {
	bank Bank

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a Random provider. A nil src seeds from the current time.
func NewRandom(bank Bank, src rand.Source) *Random {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Random{bank: bank, rng: rand.New(src)}
}

// Acquire implements Provider.
func (p *Random) Acquire(ctx context.Context, req Request) (engine.QuestionSet, error) {
	pool, err := fetchPool(ctx, p.bank, req)
	if err != nil {
		return engine.QuestionSet{}, err
	}

	p.mu.Lock()
	picked := sample(p.rng, pool, req.Count)
	p.mu.Unlock()

	return buildSet(picked)
}

// sample returns n distinct questions from pool in random order.
func sample(rng *rand.Rand, pool []model.Question, n int) []model.Question {
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]model.Question, 0, n)
	for _, i := range rng.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}
