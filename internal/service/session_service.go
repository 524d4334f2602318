package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/provider"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrResultNotFound  = errors.New("result not found")
	ErrTooManySessions = errors.New("too many live sessions")
)

// ResultSink receives every submitted result.
type ResultSink interface {
	Publish(ctx context.Context, userID int, res model.SessionResult) error
}

// ResultReader reads persisted results.
type ResultReader interface {
	ListByUser(ctx context.Context, userID, page, perPage int) ([]model.SessionResult, int64, error)
	GetByID(ctx context.Context, userID int, sessionID uuid.UUID) (*model.SessionResult, error)
}

// SessionServiceConfig tunes the live session registry.
type SessionServiceConfig struct {
	SecondsPerQuestion int
	TickInterval       time.Duration
	ProviderTimeout    time.Duration
	MaxLivePerUser     int
	// ResultRetention is how long a submitted session stays readable before it is evicted.
	ResultRetention time.Duration
	PublishTimeout  time.Duration
}

func (c SessionServiceConfig) withDefaults() SessionServiceConfig {
	if c.SecondsPerQuestion <= 0 {
		c.SecondsPerQuestion = engine.DefaultSecondsPerQuestion
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 10 * time.Second
	}
	if c.MaxLivePerUser <= 0 {
		c.MaxLivePerUser = 1
	}
	if c.ResultRetention <= 0 {
		c.ResultRetention = 15 * time.Minute
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	return c
}

type liveSession struct {
	userID  int
	session *engine.Session
	cancel  context.CancelFunc
}

// SessionService owns every live session: it acquires questions, drives clocks and
// forwards results to the sink.
type SessionService struct {
	provider provider.Provider
	sink     ResultSink
	results  ResultReader
	cfg      SessionServiceConfig
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*liveSession
	pending  map[int]int

	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	p provider.Provider,
	sink ResultSink,
	results ResultReader,
	cfg SessionServiceConfig,
	log zerolog.Logger,
) *SessionService {
	runCtx, cancel := context.WithCancel(context.Background())
	return &SessionService{
		provider:  p,
		sink:      sink,
		results:   results,
		cfg:       cfg.withDefaults(),
		log:       logger.Component(log, "session_service"),
		sessions:  make(map[uuid.UUID]*liveSession),
		pending:   make(map[int]int),
		runCtx:    runCtx,
		cancelRun: cancel,
	}
}

var specializationTitles = map[string]string{
	"software": "Software Engineering",
	"networks": "Computer Networks",
	"ai":       "Artificial Intelligence",
	"general":  "General Knowledge",
}

func defaultTitle(cfg model.SessionConfig) string {
	subject := specializationTitles[cfg.Specialization]
	if subject == "" {
		subject = cfg.Specialization
	}
	kind := "Exam"
	if cfg.Kind == model.SessionKindQuiz {
		kind = "Quiz"
	}
	if cfg.Mode == model.ModeGenerated {
		return fmt.Sprintf("Smart %s: %s", kind, subject)
	}
	return fmt.Sprintf("%s %s", subject, kind)
}

// reserve claims a live-session slot for userID. The slot is released by release or
// converted into a registered session.
func (s *SessionService) reserve(userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.pending[userID]
	for _, ls := range s.sessions {
		if ls.userID == userID && isLive(ls.session.State()) {
			live++
		}
	}
	if live >= s.cfg.MaxLivePerUser {
		return ErrTooManySessions
	}
	s.pending[userID]++
	return nil
}

func isLive(st engine.State) bool {
	return st == engine.StateInProgress || st == engine.StateSubmitting
}

func (s *SessionService) release(userID int) {
	s.pending[userID]--
	if s.pending[userID] <= 0 {
		delete(s.pending, userID)
	}
}

// Start acquires a question set and starts a timed session for userID.
// Nothing is registered when an error is returned.
func (s *SessionService) Start(ctx context.Context, userID int, cfg model.SessionConfig) (engine.View, error) {
	if cfg.SecondsPerQuestion == 0 {
		cfg.SecondsPerQuestion = s.cfg.SecondsPerQuestion
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle(cfg)
	}
	if err := engine.ValidateConfig(cfg); err != nil {
		return engine.View{}, err
	}

	if err := s.reserve(userID); err != nil {
		return engine.View{}, err
	}
	registered := false
	defer func() {
		if !registered {
			s.mu.Lock()
			s.release(userID)
			s.mu.Unlock()
		}
	}()

	acquireCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	set, err := s.provider.Acquire(acquireCtx, provider.RequestFor(cfg))
	cancel()
	if err != nil {
		return engine.View{}, fmt.Errorf("acquire questions: %w", err)
	}

	sess, err := engine.Start(cfg, set, engine.WithSubmitHook(s.onSubmit(userID)))
	if err != nil {
		return engine.View{}, err
	}

	driveCtx, stop := context.WithCancel(s.runCtx)
	s.mu.Lock()
	s.release(userID)
	s.sessions[sess.ID()] = &liveSession{userID: userID, session: sess, cancel: stop}
	registered = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		engine.Drive(driveCtx, s.cfg.TickInterval, sess)
	}()

	s.log.Info().
		Str("session_id", sess.ID().String()).
		Int("user_id", userID).
		Str("mode", string(cfg.Mode)).
		Int("questions", cfg.QuestionCount).
		Int("budget_seconds", sess.Remaining()).
		Msg("Session started")

	return sess.View(), nil
}

// onSubmit publishes the result and schedules eviction of the finished session.
func (s *SessionService) onSubmit(userID int) func(model.SessionResult) {
	return func(res model.SessionResult) {
		s.log.Info().
			Str("session_id", res.SessionID.String()).
			Int("user_id", userID).
			Str("trigger", string(res.Trigger)).
			Int("correct", res.CorrectCount).
			Int("total", res.TotalQuestions).
			Int("percentage", res.Percentage).
			Msg("Session submitted")

		if s.sink != nil {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PublishTimeout)
			if err := s.sink.Publish(ctx, userID, res); err != nil {
				s.log.Error().Err(err).Str("session_id", res.SessionID.String()).Msg("Failed to publish result")
			}
			cancel()
		}

		id := res.SessionID
		time.AfterFunc(s.cfg.ResultRetention, func() { s.evict(id) })
	}
}

func (s *SessionService) evict(id uuid.UUID) {
	s.mu.Lock()
	ls, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if ok {
		ls.cancel()
	}
}

func (s *SessionService) lookup(userID int, id uuid.UUID) (*engine.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[id]
	if !ok || ls.userID != userID {
		return nil, ErrSessionNotFound
	}
	return ls.session, nil
}

// View returns the current rendering of a session.
func (s *SessionService) View(userID int, id uuid.UUID) (engine.View, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return engine.View{}, err
	}
	return sess.View(), nil
}

// SelectAnswer records an option and returns the updated view.
func (s *SessionService) SelectAnswer(userID int, id uuid.UUID, position, option int) (engine.View, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return engine.View{}, err
	}
	if err := sess.SelectAnswer(position, option); err != nil {
		return engine.View{}, err
	}
	return sess.View(), nil
}

// GoTo moves the cursor and returns the updated view.
func (s *SessionService) GoTo(userID int, id uuid.UUID, position int) (engine.View, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return engine.View{}, err
	}
	if err := sess.GoTo(position); err != nil {
		return engine.View{}, err
	}
	return sess.View(), nil
}

// Next advances the cursor and returns the updated view.
func (s *SessionService) Next(userID int, id uuid.UUID) (engine.View, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return engine.View{}, err
	}
	sess.Next()
	return sess.View(), nil
}

// Previous moves the cursor back and returns the updated view.
func (s *SessionService) Previous(userID int, id uuid.UUID) (engine.View, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return engine.View{}, err
	}
	sess.Previous()
	return sess.View(), nil
}

// Submit submits a session manually. Submitting an already submitted session returns
// its existing result.
func (s *SessionService) Submit(userID int, id uuid.UUID) (model.SessionResult, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return model.SessionResult{}, err
	}
	res := sess.Submit(model.TriggerManual)
	if res.SessionID == uuid.Nil {
		// Closed by shutdown before it was submitted.
		return model.SessionResult{}, ErrSessionNotFound
	}
	return res, nil
}

// Abandon discards a session without scoring it.
func (s *SessionService) Abandon(userID int, id uuid.UUID) error {
	s.mu.Lock()
	ls, ok := s.sessions[id]
	if !ok || ls.userID != userID {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	ls.cancel()
	ls.session.Close()
	s.log.Info().Str("session_id", id.String()).Int("user_id", userID).Msg("Session abandoned")
	return nil
}

// Watch returns the session for streaming. Callers must only read from it or use its
// public actions.
func (s *SessionService) Watch(userID int, id uuid.UUID) (*engine.Session, error) {
	return s.lookup(userID, id)
}

// LiveCount returns the number of registered sessions.
func (s *SessionService) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops every clock and waits for the drivers to exit. Unsubmitted sessions
// are closed without a result.
func (s *SessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	open := 0
	for _, ls := range s.sessions {
		if isLive(ls.session.State()) {
			open++
		}
	}
	s.mu.Unlock()
	s.log.Info().Int("open_sessions", open).Msg("Stopping session drivers")

	s.cancelRun()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History returns a page of the user's persisted results.
func (s *SessionService) History(ctx context.Context, userID, page, perPage int) ([]model.SessionResult, int64, error) {
	if s.results == nil {
		return []model.SessionResult{}, 0, nil
	}
	return s.results.ListByUser(ctx, userID, page, perPage)
}

// HistoryItem returns one persisted result with per-question review.
func (s *SessionService) HistoryItem(ctx context.Context, userID int, id uuid.UUID) (*model.SessionResult, error) {
	if s.results == nil {
		return nil, ErrResultNotFound
	}
	res, err := s.results.GetByID(ctx, userID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	return res, err
}
