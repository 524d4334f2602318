package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-prep/internal/model"
)

// Metadata is the session information attached to a Score.
type Metadata struct {
	SessionID      uuid.UUID
	Title          string
	Kind           model.SessionKind
	Specialization string
	Mode           model.SelectionMode
	Trigger        model.Trigger
	ElapsedSeconds int
	StartedAt      time.Time
	SubmittedAt    time.Time
}

// Assembler combines a Score and Metadata into the final report.
type Assembler interface {
	Assemble(meta Metadata, score Score) model.SessionResult
}

// DefaultAssembler composes fields and derives the percentage.
type DefaultAssembler struct{}

// Assemble implements Assembler.
func (DefaultAssembler) Assemble(meta Metadata, score Score) model.SessionResult {
	return model.SessionResult{
		SessionID:      meta.SessionID,
		Title:          meta.Title,
		Kind:           meta.Kind,
		Specialization: meta.Specialization,
		Mode:           meta.Mode,
		Trigger:        meta.Trigger,
		TotalQuestions: score.Total,
		CorrectCount:   score.Correct,
		IncorrectCount: score.Total - score.Correct,
		Unanswered:     score.Total - score.Answered,
		Percentage:     Percentage(score.Correct, score.Total),
		Score:          score.Marks,
		ElapsedSeconds: meta.ElapsedSeconds,
		StartedAt:      meta.StartedAt,
		SubmittedAt:    meta.SubmittedAt,
		Questions:      append([]model.QuestionResult(nil), score.Questions...),
	}
}
