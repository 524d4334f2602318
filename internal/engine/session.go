package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-prep/internal/model"
)

// State enumerates the session lifecycle. Transitions are linear and never go back.
// CLOSED is reached only through Close on an unsubmitted session.
type State string

const (
	StateLoading    State = "LOADING"
	StateInProgress State = "IN_PROGRESS"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
	StateClosed     State = "CLOSED"
)

const (
	MinQuestions              = 5
	MaxQuestions              = 50
	DefaultSecondsPerQuestion = 120
)

// Option customizes a Session at Start.
type Option func(*Session)

// WithID sets the session identifier instead of a random one.
func WithID(id uuid.UUID) Option {
	return func(s *Session) { s.id = id }
}

// WithScorer replaces DefaultScorer.
func WithScorer(sc Scorer) Option {
	return func(s *Session) { s.scorer = sc }
}

// WithAssembler replaces DefaultAssembler.
func WithAssembler(a Assembler) Option {
	return func(s *Session) { s.assembler = a }
}

// WithNow sets the wall clock used for start and submit timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithSubmitHook registers fn to receive the result once, after submission completes.
// fn runs on the submitting goroutine with no session lock held.
func WithSubmitHook(fn func(model.SessionResult)) Option {
	return func(s *Session) { s.onSubmit = fn }
}

// Session is the controller of one attempt. It is the sole mutator of its question
// cursor, answer tracker and clock, and the only path to a scored result.
// All methods are safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	id        uuid.UUID
	cfg       model.SessionConfig
	set       QuestionSet
	answers   *AnswerTracker
	clock     *Clock
	cursor    int
	state     State
	result    *model.SessionResult
	startedAt time.Time

	scorer    Scorer
	assembler Assembler
	now       func() time.Time
	onSubmit  func(model.SessionResult)

	done      chan struct{}
	closeOnce sync.Once
}

// ValidateConfig checks a SessionConfig independently of any question set.
func ValidateConfig(cfg model.SessionConfig) error {
	if cfg.QuestionCount < MinQuestions || cfg.QuestionCount > MaxQuestions {
		return &InvalidConfigError{
			Field:  "question_count",
			Reason: fmt.Sprintf("%d outside [%d,%d]", cfg.QuestionCount, MinQuestions, MaxQuestions),
		}
	}
	switch cfg.Mode {
	case model.ModePreset, model.ModeRandom:
	case model.ModeGenerated:
		if cfg.Generator == nil || cfg.Generator.ModelID == "" {
			return &InvalidConfigError{Field: "generator", Reason: "required for generated mode"}
		}
	default:
		return &InvalidConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	if cfg.SecondsPerQuestion < 0 {
		return &InvalidConfigError{Field: "seconds_per_question", Reason: "must not be negative"}
	}
	return nil
}

// Start initializes a session over set and starts its clock with a budget of
// QuestionCount x SecondsPerQuestion. No session exists when an error is returned.
func Start(cfg model.SessionConfig, set QuestionSet, opts ...Option) (*Session, error) {
	if set.Len() == 0 {
		return nil, ErrEmptyQuestionSet
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if set.Len() != cfg.QuestionCount {
		return nil, &InvalidConfigError{
			Field:  "question_count",
			Reason: fmt.Sprintf("question set has %d questions, config requests %d", set.Len(), cfg.QuestionCount),
		}
	}
	if cfg.SecondsPerQuestion == 0 {
		cfg.SecondsPerQuestion = DefaultSecondsPerQuestion
	}

	s := &Session{
		id:        uuid.New(),
		cfg:       cfg,
		set:       set,
		answers:   NewAnswerTracker(set.Len()),
		state:     StateLoading,
		scorer:    DefaultScorer{},
		assembler: DefaultAssembler{},
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.clock = NewClock(func() { s.Submit(model.TriggerTimeExpired) })
	if err := s.clock.Start(cfg.QuestionCount * cfg.SecondsPerQuestion); err != nil {
		return nil, err
	}
	s.startedAt = s.now()
	s.state = StateInProgress
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Config returns the configuration the session was started with.
func (s *Session) Config() model.SessionConfig { return s.cfg }

// Done is closed once the session is submitted or closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Tick advances the clock by one second. Expiry submits the session.
func (s *Session) Tick() { s.clock.Tick() }

// acceptsInput reports whether user actions may still mutate the session.
// Caller must hold s.mu.
func (s *Session) acceptsInput() bool {
	return s.state == StateInProgress && s.clock.State() != ClockExpired
}

// SelectAnswer records option for the question at position. After submission the call
// is ignored and returns nil. Out-of-range values leave the tracker unchanged.
func (s *Session) SelectAnswer(position, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acceptsInput() {
		return nil
	}
	if err := checkRange("position", position, s.set.Len()); err != nil {
		return err
	}
	if err := checkRange("option", option, len(s.set.at(position).Options)); err != nil {
		return err
	}
	return s.answers.Set(position, option)
}

// GoTo moves the cursor to position. Navigation is free; answering order is not enforced.
func (s *Session) GoTo(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acceptsInput() {
		return nil
	}
	if err := checkRange("position", position, s.set.Len()); err != nil {
		return err
	}
	s.cursor = position
	return nil
}

// Next moves the cursor forward, stopping at the last question.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acceptsInput() && s.cursor < s.set.Len()-1 {
		s.cursor++
	}
	return s.cursor
}

// Previous moves the cursor back, stopping at the first question.
func (s *Session) Previous() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acceptsInput() && s.cursor > 0 {
		s.cursor--
	}
	return s.cursor
}

// IsComplete reports whether every question has an answer. It is advisory only;
// incomplete sessions may be submitted.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.IsFullyAnswered()
}

// Submit scores the session and returns its result. Only the first call does the work:
// later calls, from either trigger and in any order, return the cached result.
// A closed session is never scored; Submit returns the zero result and the hook
// does not fire.
func (s *Session) Submit(trigger model.Trigger) model.SessionResult {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting, StateSubmitted:
		res := s.result.Clone()
		s.mu.Unlock()
		return res
	case StateClosed:
		s.mu.Unlock()
		return model.SessionResult{}
	}

	s.state = StateSubmitting
	s.clock.Stop()

	score := s.scorer.Score(s.set, s.answers.Snapshot())
	res := s.assembler.Assemble(Metadata{
		SessionID:      s.id,
		Title:          s.cfg.Title,
		Kind:           s.cfg.Kind,
		Specialization: s.cfg.Specialization,
		Mode:           s.cfg.Mode,
		Trigger:        trigger,
		ElapsedSeconds: s.clock.Elapsed(),
		StartedAt:      s.startedAt,
		SubmittedAt:    s.now(),
	}, score)

	s.result = &res
	s.state = StateSubmitted
	hook := s.onSubmit
	s.mu.Unlock()

	s.closeDone()
	if hook != nil {
		hook(res.Clone())
	}
	return res.Clone()
}

// Close tears the session down without submitting it. The clock is frozen so no
// later tick can expire it, and input and Submit are refused from then on.
// Closing a submitted session keeps its result.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state != StateSubmitted && s.state != StateSubmitting {
		s.state = StateClosed
	}
	s.mu.Unlock()

	s.clock.Stop()
	s.closeDone()
}

func (s *Session) closeDone() {
	s.closeOnce.Do(func() { close(s.done) })
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor returns the current position.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// CurrentQuestion returns the question under the cursor without its answer key.
func (s *Session) CurrentQuestion() model.QuestionForCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.at(s.cursor).ForCandidate()
}

// Answers returns a snapshot of the tracker.
func (s *Session) Answers() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Snapshot()
}

// Remaining returns the seconds left on the clock.
func (s *Session) Remaining() int { return s.clock.Remaining() }

// Result returns the cached result once the session is submitted.
func (s *Session) Result() (model.SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return model.SessionResult{}, false
	}
	return s.result.Clone(), true
}

// View is a read-only rendering of a session for the presentation layer.
type View struct {
	SessionID        uuid.UUID                  `json:"session_id"`
	Title            string                     `json:"title"`
	Kind             model.SessionKind          `json:"kind"`
	Specialization   string                     `json:"specialization"`
	State            State                      `json:"state"`
	Cursor           int                        `json:"cursor"`
	TotalQuestions   int                        `json:"total_questions"`
	Current          model.QuestionForCandidate `json:"current"`
	Answers          Snapshot                   `json:"answers"`
	AnsweredCount    int                        `json:"answered_count"`
	Complete         bool                       `json:"complete"`
	RemainingSeconds int                        `json:"remaining_seconds"`
	TotalSeconds     int                        `json:"total_seconds"`
	Clock            ClockState                 `json:"clock"`
	Result           *model.SessionResult       `json:"result,omitempty"`
}

// View captures the session state consistently under one lock.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:        s.id,
		Title:            s.cfg.Title,
		Kind:             s.cfg.Kind,
		Specialization:   s.cfg.Specialization,
		State:            s.state,
		Cursor:           s.cursor,
		TotalQuestions:   s.set.Len(),
		Current:          s.set.at(s.cursor).ForCandidate(),
		Answers:          s.answers.Snapshot(),
		AnsweredCount:    s.answers.AnsweredCount(),
		Complete:         s.answers.IsFullyAnswered(),
		RemainingSeconds: s.clock.Remaining(),
		TotalSeconds:     s.clock.Total(),
		Clock:            s.clock.State(),
	}
	if s.result != nil {
		r := s.result.Clone()
		v.Result = &r
	}
	return v
}
