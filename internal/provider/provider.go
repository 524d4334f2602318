// Package provider acquires the question set for a new session.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/model"
)

var (
	ErrProviderUnavailable   = errors.New("question provider unavailable")
	ErrInvalidSpecialization = errors.New("invalid specialization")
	ErrGenerationFailed      = errors.New("question generation failed")
	ErrInsufficientQuestions = errors.New("not enough questions available")
)

// Request describes the questions a session needs.
type Request struct {
	Specialization string
	Count          int
	Mode           model.SelectionMode
	Generator      *model.GeneratorParams
}

// RequestFor derives a provider request from a session config.
func RequestFor(cfg model.SessionConfig) Request {
	return Request{
		Specialization: cfg.Specialization,
		Count:          cfg.QuestionCount,
		Mode:           cfg.Mode,
		Generator:      cfg.Generator,
	}
}

// Provider resolves a Request into an ordered question set.
type Provider interface {
	Acquire(ctx context.Context, req Request) (engine.QuestionSet, error)
}

// Bank is the source of stored questions. Results are in bank order.
type Bank interface {
	ListBySpecialization(ctx context.Context, specialization string) ([]model.Question, error)
}

// fetchPool loads the candidate questions for req and checks there are enough of them.
func fetchPool(ctx context.Context, bank Bank, req Request) ([]model.Question, error) {
	if !model.IsKnownSpecialization(req.Specialization) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpecialization, req.Specialization)
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("%w: requested %d", ErrInsufficientQuestions, req.Count)
	}

	pool, err := bank.ListBySpecialization(ctx, req.Specialization)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	if len(pool) < req.Count {
		return nil, fmt.Errorf("%w: %d available, %d requested", ErrInsufficientQuestions, len(pool), req.Count)
	}
	return pool, nil
}

func buildSet(questions []model.Question) (engine.QuestionSet, error) {
	set, err := engine.NewQuestionSet(questions)
	if err != nil {
		return engine.QuestionSet{}, fmt.Errorf("build question set: %w", err)
	}
	return set, nil
}
