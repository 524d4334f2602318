package provider

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/stemsi/exstem-prep/internal/model"
	"gopkg.in/yaml.v3"
)

// BankFile is the YAML layout of a question bank file.
type BankFile struct {
	Questions []model.Question `yaml:"questions"`
}

// MemoryBank is an in-memory Bank, typically loaded from a YAML file.
type MemoryBank struct {
	mu     sync.RWMutex
	bySpec map[string][]model.Question
}

// NewMemoryBank indexes questions by specialization, keeping their order.
func NewMemoryBank(questions []model.Question) *MemoryBank {
	b := &MemoryBank{bySpec: make(map[string][]model.Question)}
	for _, q := range questions {
		b.bySpec[q.Specialization] = append(b.bySpec[q.Specialization], q.Clone())
	}
	return b
}

// ParseBank decodes and validates a YAML bank document.
func ParseBank(data []byte) ([]model.Question, error) {
	var file BankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Questions))
	for i := range file.Questions {
		q := &file.Questions[i]
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: missing id", i)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("question %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = struct{}{}
		if !model.IsKnownSpecialization(q.Specialization) {
			return nil, fmt.Errorf("question %q: %w %q", q.ID, ErrInvalidSpecialization, q.Specialization)
		}
		*q = q.WithDefaults()
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Questions, nil
}

// LoadBankFile reads a YAML bank file into a MemoryBank.
func LoadBankFile(path string) (*MemoryBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank %s: %w", path, err)
	}
	questions, err := ParseBank(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewMemoryBank(questions), nil
}

// ListBySpecialization implements Bank.
func (b *MemoryBank) ListBySpecialization(ctx context.Context, specialization string) ([]model.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	src := b.bySpec[specialization]
	out := make([]model.Question, len(src))
	for i, q := range src {
		out[i] = q.Clone()
	}
	return out, nil
}

// Len returns the total number of stored questions.
func (b *MemoryBank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, qs := range b.bySpec {
		n += len(qs)
	}
	return n
}
