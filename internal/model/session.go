package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionKind is the framing of a session. It does not change engine behavior.
type SessionKind string

const (
	SessionKindExam SessionKind = "exam"
	SessionKindQuiz SessionKind = "quiz"
)

// SelectionMode picks how the question set is acquired.
type SelectionMode string

const (
	ModePreset    SelectionMode = "preset"
	ModeRandom    SelectionMode = "random"
	ModeGenerated SelectionMode = "generated"
)

// Trigger identifies what caused a submission.
type Trigger string

const (
	TriggerManual      Trigger = "MANUAL"
	TriggerTimeExpired Trigger = "TIME_EXPIRED"
)

// NotAnswered is the answer text reported for skipped questions.
const NotAnswered = "not answered"

// GeneratorParams carries provider-specific options for generated question sets.
type GeneratorParams struct {
	ModelID string `json:"model_id" binding:"required,min=1,max=100"`
}

// SessionConfig describes a session to start. It is never mutated after Start.
type SessionConfig struct {
	Kind               SessionKind      `json:"kind"`
	Title              string           `json:"title"`
	Specialization     string           `json:"specialization"`
	QuestionCount      int              `json:"question_count"`
	Mode               SelectionMode    `json:"mode"`
	Generator          *GeneratorParams `json:"generator,omitempty"`
	SecondsPerQuestion int              `json:"seconds_per_question"`
}

// StartSessionRequest is the payload for starting an exam or quiz.
type StartSessionRequest struct {
	Kind               SessionKind      `json:"kind" binding:"required,oneof=exam quiz"`
	Specialization     string           `json:"specialization" binding:"required,specialization"`
	QuestionCount      int              `json:"question_count" binding:"required,min=5,max=50"`
	Mode               SelectionMode    `json:"mode" binding:"required,oneof=preset random generated"`
	Generator          *GeneratorParams `json:"generator" binding:"required_if=Mode generated"`
	SecondsPerQuestion int              `json:"seconds_per_question" binding:"omitempty,min=10,max=600"`
}

// Config converts the request into a SessionConfig.
func (r StartSessionRequest) Config() SessionConfig {
	return SessionConfig{
		Kind:               r.Kind,
		Specialization:     r.Specialization,
		QuestionCount:      r.QuestionCount,
		Mode:               r.Mode,
		Generator:          r.Generator,
		SecondsPerQuestion: r.SecondsPerQuestion,
	}
}

// SelectAnswerRequest is the payload for choosing an option.
type SelectAnswerRequest struct {
	Option *int `json:"option" binding:"required"`
}

// GoToRequest is the payload for jumping to a position.
type GoToRequest struct {
	Position *int `json:"position" binding:"required"`
}

// QuestionResult is the review line for one question.
type QuestionResult struct {
	Position       int    `json:"position"`
	QuestionID     string `json:"question_id"`
	QuestionText   string `json:"question_text"`
	SelectedOption int    `json:"selected_option"`
	UserAnswer     string `json:"user_answer"`
	CorrectOption  int    `json:"correct_option"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
	Marks          int    `json:"marks"`
}

// SessionResult is the scored report of a submitted session.
type SessionResult struct {
	SessionID      uuid.UUID        `json:"session_id"`
	Title          string           `json:"title"`
	Kind           SessionKind      `json:"kind"`
	Specialization string           `json:"specialization"`
	Mode           SelectionMode    `json:"mode"`
	Trigger        Trigger          `json:"trigger"`
	TotalQuestions int              `json:"total_questions"`
	CorrectCount   int              `json:"correct_count"`
	IncorrectCount int              `json:"incorrect_count"`
	Unanswered     int              `json:"unanswered"`
	Percentage     int              `json:"percentage"`
	Score          int              `json:"score"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	StartedAt      time.Time        `json:"started_at"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	Questions      []QuestionResult `json:"questions,omitempty"`
}

// Clone returns a copy that does not share the Questions slice.
func (r SessionResult) Clone() SessionResult {
	r.Questions = append([]QuestionResult(nil), r.Questions...)
	return r
}

// ResultRecord is a persisted result owned by a user.
type ResultRecord struct {
	UserID int `json:"user_id"`
	// Attempts counts failed persist attempts while queued.
	Attempts int `json:"attempts,omitempty"`
	SessionResult
}
