package engine

import (
	"fmt"

	"github.com/stemsi/exstem-prep/internal/model"
)

// QuestionSet is the immutable ordered list of questions assigned to one session.
// The zero value is an empty set.
type QuestionSet struct {
	questions []model.Question
}

// NewQuestionSet validates and copies questions into a set.
func NewQuestionSet(questions []model.Question) (QuestionSet, error) {
	if len(questions) == 0 {
		return QuestionSet{}, ErrEmptyQuestionSet
	}
	qs := make([]model.Question, len(questions))
	for i, q := range questions {
		q = q.Clone().WithDefaults()
		if err := q.Validate(); err != nil {
			return QuestionSet{}, fmt.Errorf("position %d: %w", i, err)
		}
		qs[i] = q
	}
	return QuestionSet{questions: qs}, nil
}

// Len returns the number of questions.
func (s QuestionSet) Len() int { return len(s.questions) }

// At returns a copy of the question at position i.
func (s QuestionSet) At(i int) (model.Question, error) {
	if err := checkRange("position", i, len(s.questions)); err != nil {
		return model.Question{}, err
	}
	return s.questions[i].Clone(), nil
}

// Questions returns a copy of every question in order.
func (s QuestionSet) Questions() []model.Question {
	out := make([]model.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out
}

// at returns the stored question without copying. Callers must not mutate it.
func (s QuestionSet) at(i int) *model.Question { return &s.questions[i] }
