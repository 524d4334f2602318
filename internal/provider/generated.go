package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/model"
)

// Generator produces questions for a generated session from a candidate pool.
type Generator interface {
	Generate(ctx context.Context, pool []model.Question, req Request) ([]model.Question, error)
}

// Generated serves ModeGenerated requests through a Generator. Only allowlisted model
// IDs are accepted.
type Generated struct {
	bank   Bank
	gen    Generator
	models map[string]struct{}
}

// NewGenerated creates a Generated provider. modelIDs is the allowlist of generator models.
func NewGenerated(bank Bank, gen Generator, modelIDs []string) *Generated {
	models := make(map[string]struct{}, len(modelIDs))
	for _, id := range modelIDs {
		models[id] = struct{}{}
	}
	return &Generated{bank: bank, gen: gen, models: models}
}

// Acquire implements Provider.
func (p *Generated) Acquire(ctx context.Context, req Request) (engine.QuestionSet, error) {
	if req.Generator == nil || req.Generator.ModelID == "" {
		return engine.QuestionSet{}, fmt.Errorf("%w: missing generator params", ErrGenerationFailed)
	}
	if _, ok := p.models[req.Generator.ModelID]; !ok {
		return engine.QuestionSet{}, fmt.Errorf("%w: unknown model %q", ErrGenerationFailed, req.Generator.ModelID)
	}

	pool, err := fetchPool(ctx, p.bank, req)
	if err != nil {
		return engine.QuestionSet{}, err
	}

	questions, err := p.gen.Generate(ctx, pool, req)
	if err != nil {
		return engine.QuestionSet{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if len(questions) != req.Count {
		return engine.QuestionSet{}, fmt.Errorf("%w: generated %d questions, want %d", ErrGenerationFailed, len(questions), req.Count)
	}
	return buildSet(questions)
}

// MixGenerator picks a difficulty-balanced set: 40% easy, 40% medium and the rest hard,
// topped up from whatever remains when a level runs short. Questions are ordered
// easy first.
type MixGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMixGenerator creates a MixGenerator. A nil src seeds from the current time.
func NewMixGenerator(src rand.Source) *MixGenerator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &MixGenerator{rng: rand.New(src)}
}

// Generate implements Generator.
func (g *MixGenerator) Generate(ctx context.Context, pool []model.Question, req Request) ([]model.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byLevel := map[model.Difficulty][]model.Question{}
	for _, q := range pool {
		d := q.WithDefaults().Difficulty
		byLevel[d] = append(byLevel[d], q)
	}

	easy := req.Count * 4 / 10
	medium := req.Count * 4 / 10
	hard := req.Count - easy - medium

	g.mu.Lock()
	defer g.mu.Unlock()

	selected := make([]model.Question, 0, req.Count)
	taken := make(map[string]struct{}, req.Count)
	pick := func(from []model.Question, n int) {
		for _, q := range sample(g.rng, from, n) {
			selected = append(selected, q)
			taken[q.ID] = struct{}{}
		}
	}

	pick(byLevel[model.DifficultyEasy], easy)
	pick(byLevel[model.DifficultyMedium], medium)
	pick(byLevel[model.DifficultyHard], hard)

	if len(selected) < req.Count {
		var rest []model.Question
		for _, q := range pool {
			if _, ok := taken[q.ID]; !ok {
				rest = append(rest, q)
			}
		}
		pick(rest, req.Count-len(selected))
	}
	return selected, nil
}
