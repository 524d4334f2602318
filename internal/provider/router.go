package provider

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/model"
)

// Router dispatches a Request to the provider registered for its mode.
type Router struct {
	byMode map[model.SelectionMode]Provider
}

// NewRouter creates a Router with the given providers.
func NewRouter(preset, random, generated Provider) *Router {
	return &Router{byMode: map[model.SelectionMode]Provider{
		model.ModePreset:    preset,
		model.ModeRandom:    random,
		model.ModeGenerated: generated,
	}}
}

// Acquire implements Provider.
func (r *Router) Acquire(ctx context.Context, req Request) (engine.QuestionSet, error) {
	p, ok := r.byMode[req.Mode]
	if !ok || p == nil {
		return engine.QuestionSet{}, fmt.Errorf("%w: no provider for mode %q", ErrProviderUnavailable, req.Mode)
	}
	return p.Acquire(ctx, req)
}
