package model

import (
	"errors"
	"fmt"
)

// AttachmentKind enumerates the supported question attachment types.
type AttachmentKind string

const (
	AttachmentImage   AttachmentKind = "image"
	AttachmentCode    AttachmentKind = "code"
	AttachmentText    AttachmentKind = "text"
	AttachmentDiagram AttachmentKind = "diagram"
)

// Difficulty enumerates question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Specializations lists the topic areas questions are grouped by.
var Specializations = []string{"software", "networks", "ai", "general"}

// IsKnownSpecialization reports whether tag is one of Specializations.
func IsKnownSpecialization(tag string) bool {
	for _, s := range Specializations {
		if s == tag {
			return true
		}
	}
	return false
}

// ErrInvalidQuestion is returned by Question.Validate.
var ErrInvalidQuestion = errors.New("invalid question")

// Attachment is optional material shown alongside a question.
// Content is either inline text (code, text) or a reference such as a URL (image, diagram).
type Attachment struct {
	Kind    AttachmentKind `json:"kind" yaml:"kind"`
	Content string         `json:"content" yaml:"content"`
}

// Question is a single multiple-choice item.
type Question struct {
	ID             string      `json:"id" yaml:"id"`
	Specialization string      `json:"specialization" yaml:"specialization"`
	Text           string      `json:"text" yaml:"text"`
	Options        []string    `json:"options" yaml:"options"`
	CorrectOption  int         `json:"correct_option" yaml:"correct_option"`
	Difficulty     Difficulty  `json:"difficulty" yaml:"difficulty"`
	Marks          int         `json:"marks" yaml:"marks"`
	Attachment     *Attachment `json:"attachment,omitempty" yaml:"attachment,omitempty"`
}

// Validate checks the structural invariants of a question.
func (q *Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("%w %q: empty text", ErrInvalidQuestion, q.ID)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w %q: needs at least 2 options, got %d", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w %q: duplicate option %q", ErrInvalidQuestion, q.ID, opt)
		}
		seen[opt] = struct{}{}
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return fmt.Errorf("%w %q: correct option %d out of range [0,%d)", ErrInvalidQuestion, q.ID, q.CorrectOption, len(q.Options))
	}
	if q.Attachment != nil {
		switch q.Attachment.Kind {
		case AttachmentImage, AttachmentCode, AttachmentText, AttachmentDiagram:
		default:
			return fmt.Errorf("%w %q: unknown attachment kind %q", ErrInvalidQuestion, q.ID, q.Attachment.Kind)
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias the options slice.
func (q Question) Clone() Question {
	q.Options = append([]string(nil), q.Options...)
	if q.Attachment != nil {
		a := *q.Attachment
		q.Attachment = &a
	}
	return q
}

// WithDefaults fills zero-valued optional fields.
func (q Question) WithDefaults() Question {
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	if q.Marks <= 0 {
		q.Marks = 1
	}
	return q
}

// QuestionForCandidate is a question without its answer key, shown during a session.
type QuestionForCandidate struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Options    []string    `json:"options"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// ForCandidate strips the correct option.
func (q Question) ForCandidate() QuestionForCandidate {
	c := q.Clone()
	return QuestionForCandidate{
		ID:         c.ID,
		Text:       c.Text,
		Options:    c.Options,
		Attachment: c.Attachment,
	}
}
