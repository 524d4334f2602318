package provider

import (
	"context"

	"github.com/stemsi/exstem-prep/internal/engine"
)

// Preset returns the first Count bank questions in bank order.
type Preset struct {
	bank Bank
}

// NewPreset creates a Preset provider over bank.
func NewPreset(bank Bank) *Preset {
	return &Preset{bank: bank}
}

// Acquire implements Provider.
func (p *Preset) Acquire(ctx context.Context, req Request) (engine.QuestionSet, error) {
	pool, err := fetchPool(ctx, p.bank, req)
	if err != nil {
		return engine.QuestionSet{}, err
	}
	return buildSet(pool[:req.Count])
}
