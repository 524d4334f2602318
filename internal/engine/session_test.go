package engine

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-prep/internal/model"
)

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:             fmt.Sprintf("q%d", i+1),
			Specialization: "software",
			Text:           fmt.Sprintf("Question %d", i+1),
			Options:        []string{"A", "B", "C", "D"},
			CorrectOption:  i % 4,
		}
	}
	return qs
}

func makeSet(t *testing.T, n int) QuestionSet {
	t.Helper()
	set, err := NewQuestionSet(makeQuestions(n))
	if err != nil {
		t.Fatalf("NewQuestionSet: %v", err)
	}
	return set
}

func makeConfig(n int) model.SessionConfig {
	return model.SessionConfig{
		Kind:               model.SessionKindExam,
		Title:              "Software Engineering Exam",
		Specialization:     "software",
		QuestionCount:      n,
		Mode:               model.ModePreset,
		SecondsPerQuestion: 120,
	}
}

func startSession(t *testing.T, n int, opts ...Option) *Session {
	t.Helper()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	opts = append([]Option{WithNow(func() time.Time { return fixed })}, opts...)
	s, err := Start(makeConfig(n), makeSet(t, n), opts...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

type countingScorer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingScorer) Score(set QuestionSet, answers Snapshot) Score {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return DefaultScorer{}.Score(set, answers)
}

func TestStartInitializesSession(t *testing.T) {
	s := startSession(t, 5)

	if got := s.State(); got != StateInProgress {
		t.Fatalf("state = %s, want %s", got, StateInProgress)
	}
	if got := s.Cursor(); got != 0 {
		t.Fatalf("cursor = %d, want 0", got)
	}
	if got := s.Remaining(); got != 600 {
		t.Fatalf("remaining = %d, want 600", got)
	}
	for i, a := range s.Answers() {
		if a != Unanswered {
			t.Fatalf("answer %d = %d, want unanswered", i, a)
		}
	}
	if s.IsComplete() {
		t.Fatal("fresh session reported complete")
	}
}

func TestStartDefaultsSecondsPerQuestion(t *testing.T) {
	cfg := makeConfig(5)
	cfg.SecondsPerQuestion = 0
	s, err := Start(cfg, makeSet(t, 5))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.Remaining(); got != 5*DefaultSecondsPerQuestion {
		t.Fatalf("remaining = %d, want %d", got, 5*DefaultSecondsPerQuestion)
	}
}

func TestStartEmptyQuestionSet(t *testing.T) {
	s, err := Start(makeConfig(5), QuestionSet{})
	if !errors.Is(err, ErrEmptyQuestionSet) {
		t.Fatalf("err = %v, want ErrEmptyQuestionSet", err)
	}
	if s != nil {
		t.Fatal("session created for empty question set")
	}
}

func TestStartInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.SessionConfig)
		field  string
	}{
		{"count below range", func(c *model.SessionConfig) { c.QuestionCount = 4 }, "question_count"},
		{"count above range", func(c *model.SessionConfig) { c.QuestionCount = 51 }, "question_count"},
		{"count mismatches set", func(c *model.SessionConfig) { c.QuestionCount = 6 }, "question_count"},
		{"unknown mode", func(c *model.SessionConfig) { c.Mode = "adaptive" }, "mode"},
		{"generated without params", func(c *model.SessionConfig) { c.Mode = model.ModeGenerated }, "generator"},
		{"negative seconds", func(c *model.SessionConfig) { c.SecondsPerQuestion = -1 }, "seconds_per_question"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := makeConfig(5)
			tt.mutate(&cfg)

			s, err := Start(cfg, makeSet(t, 5))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
			var ice *InvalidConfigError
			if !errors.As(err, &ice) || ice.Field != tt.field {
				t.Fatalf("err = %#v, want field %q", err, tt.field)
			}
			if s != nil {
				t.Fatal("session created for invalid config")
			}
		})
	}
}

func TestSelectAnswerOutOfRange(t *testing.T) {
	s := startSession(t, 5)
	if err := s.SelectAnswer(1, 2); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	before := s.Answers()

	tests := []struct {
		name             string
		position, option int
	}{
		{"position past end", 10, 0},
		{"negative position", -1, 0},
		{"option past end", 0, 4},
		{"negative option", 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SelectAnswer(tt.position, tt.option)
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("err = %v, want ErrOutOfRange", err)
			}
			if got := s.Answers(); !reflect.DeepEqual(got, before) {
				t.Fatalf("answers changed: %v -> %v", before, got)
			}
		})
	}
}

func TestSelectAnswerDoesNotMoveCursor(t *testing.T) {
	s := startSession(t, 5)
	if err := s.SelectAnswer(3, 1); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if got := s.Cursor(); got != 0 {
		t.Fatalf("cursor = %d, want 0", got)
	}
	if got := s.Answers()[3]; got != 1 {
		t.Fatalf("answer 3 = %d, want 1", got)
	}
}

func TestNavigation(t *testing.T) {
	s := startSession(t, 5)

	if got := s.Previous(); got != 0 {
		t.Fatalf("Previous at start = %d, want 0", got)
	}
	if err := s.GoTo(4); err != nil {
		t.Fatalf("GoTo(4): %v", err)
	}
	if got := s.Next(); got != 4 {
		t.Fatalf("Next at end = %d, want 4", got)
	}
	if got := s.Previous(); got != 3 {
		t.Fatalf("Previous = %d, want 3", got)
	}
	if err := s.GoTo(5); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("GoTo(5) err = %v, want ErrOutOfRange", err)
	}
	if err := s.GoTo(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("GoTo(-1) err = %v, want ErrOutOfRange", err)
	}
	if got := s.Cursor(); got != 3 {
		t.Fatalf("cursor after failed GoTo = %d, want 3", got)
	}
	if got := s.CurrentQuestion().ID; got != "q4" {
		t.Fatalf("current question = %s, want q4", got)
	}
}

func TestFullExamAllCorrect(t *testing.T) {
	s := startSession(t, 5)
	qs := makeQuestions(5)

	// Answer out of order to exercise non-linear navigation.
	for _, i := range []int{4, 0, 2, 1, 3} {
		if err := s.GoTo(i); err != nil {
			t.Fatalf("GoTo(%d): %v", i, err)
		}
		if err := s.SelectAnswer(i, qs[i].CorrectOption); err != nil {
			t.Fatalf("SelectAnswer(%d): %v", i, err)
		}
	}
	if !s.IsComplete() {
		t.Fatal("IsComplete = false after answering everything")
	}

	for i := 0; i < 30; i++ {
		s.Tick()
	}
	res := s.Submit(model.TriggerManual)

	if res.CorrectCount != 5 || res.Percentage != 100 {
		t.Fatalf("result = %d correct / %d%%, want 5 / 100%%", res.CorrectCount, res.Percentage)
	}
	if res.ElapsedSeconds != 30 {
		t.Fatalf("elapsed = %d, want 30", res.ElapsedSeconds)
	}
	if res.Trigger != model.TriggerManual {
		t.Fatalf("trigger = %s, want MANUAL", res.Trigger)
	}
	if s.State() != StateSubmitted {
		t.Fatalf("state = %s, want SUBMITTED", s.State())
	}
}

func TestTimeoutWithPartialAnswers(t *testing.T) {
	var hooked []model.SessionResult
	s := startSession(t, 10, WithSubmitHook(func(r model.SessionResult) { hooked = append(hooked, r) }))
	qs := makeQuestions(10)

	for i := 0; i < 4; i++ {
		if err := s.SelectAnswer(i, qs[i].CorrectOption); err != nil {
			t.Fatalf("SelectAnswer(%d): %v", i, err)
		}
	}

	for i := 0; i < 1200; i++ {
		s.Tick()
	}

	if s.State() != StateSubmitted {
		t.Fatalf("state = %s, want SUBMITTED after budget elapsed", s.State())
	}
	res, ok := s.Result()
	if !ok {
		t.Fatal("no result after expiry")
	}
	if res.CorrectCount != 4 || res.Percentage != 40 {
		t.Fatalf("result = %d correct / %d%%, want 4 / 40%%", res.CorrectCount, res.Percentage)
	}
	if res.Trigger != model.TriggerTimeExpired {
		t.Fatalf("trigger = %s, want TIME_EXPIRED", res.Trigger)
	}
	if res.ElapsedSeconds != 1200 {
		t.Fatalf("elapsed = %d, want 1200", res.ElapsedSeconds)
	}
	if res.Unanswered != 6 {
		t.Fatalf("unanswered = %d, want 6", res.Unanswered)
	}
	for _, qr := range res.Questions[4:] {
		if qr.IsCorrect || qr.UserAnswer != model.NotAnswered {
			t.Fatalf("question %d = %+v, want not answered and incorrect", qr.Position, qr)
		}
	}
	if len(hooked) != 1 {
		t.Fatalf("submit hook fired %d times, want 1", len(hooked))
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after expiry")
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	orders := [][2]model.Trigger{
		{model.TriggerManual, model.TriggerTimeExpired},
		{model.TriggerTimeExpired, model.TriggerManual},
	}
	for _, order := range orders {
		t.Run(string(order[0])+"_first", func(t *testing.T) {
			scorer := &countingScorer{}
			s := startSession(t, 5, WithScorer(scorer))
			_ = s.SelectAnswer(0, 0)

			first := s.Submit(order[0])
			second := s.Submit(order[1])

			if !reflect.DeepEqual(first, second) {
				t.Fatalf("results differ:\n%+v\n%+v", first, second)
			}
			if second.Trigger != order[0] {
				t.Fatalf("trigger = %s, want first trigger %s", second.Trigger, order[0])
			}
			if scorer.calls != 1 {
				t.Fatalf("scorer ran %d times, want 1", scorer.calls)
			}
		})
	}
}

func TestConcurrentSubmitAndExpiry(t *testing.T) {
	scorer := &countingScorer{}
	s := startSession(t, 5, WithScorer(scorer))

	// Leave one second so the ticking goroutine races the manual submit.
	for i := 0; i < 599; i++ {
		s.Tick()
	}

	var wg sync.WaitGroup
	results := make([]model.SessionResult, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Tick()
		results[0], _ = s.Result()
	}()
	go func() {
		defer wg.Done()
		results[1] = s.Submit(model.TriggerManual)
	}()
	wg.Wait()

	final, ok := s.Result()
	if !ok {
		t.Fatal("no result")
	}
	if !reflect.DeepEqual(final, results[1]) {
		t.Fatalf("manual submit returned a different result than cached")
	}
	if scorer.calls != 1 {
		t.Fatalf("scorer ran %d times, want 1", scorer.calls)
	}
}

func TestInputIgnoredAfterSubmit(t *testing.T) {
	s := startSession(t, 5)
	_ = s.SelectAnswer(0, 1)
	res := s.Submit(model.TriggerManual)

	if err := s.SelectAnswer(0, 2); err != nil {
		t.Fatalf("late SelectAnswer err = %v, want nil", err)
	}
	if err := s.SelectAnswer(99, 99); err != nil {
		t.Fatalf("late out-of-range SelectAnswer err = %v, want nil", err)
	}
	if err := s.GoTo(3); err != nil {
		t.Fatalf("late GoTo err = %v, want nil", err)
	}
	s.Next()
	s.Tick()

	if got := s.Answers()[0]; got != 1 {
		t.Fatalf("answer changed after submit: %d", got)
	}
	if got := s.Cursor(); got != 0 {
		t.Fatalf("cursor moved after submit: %d", got)
	}
	again, _ := s.Result()
	if !reflect.DeepEqual(res, again) {
		t.Fatal("result changed after late events")
	}
}

func TestResultIsNotAliased(t *testing.T) {
	s := startSession(t, 5)
	res := s.Submit(model.TriggerManual)
	res.Questions[0].IsCorrect = true
	res.Questions[0].QuestionText = "tampered"

	cached, _ := s.Result()
	if cached.Questions[0].QuestionText == "tampered" {
		t.Fatal("caller mutation leaked into cached result")
	}
}

func TestClosedSessionIgnoresTicks(t *testing.T) {
	s := startSession(t, 5)
	s.Tick()
	s.Close()
	for i := 0; i < 1000; i++ {
		s.Tick()
	}
	if got := s.Remaining(); got != 599 {
		t.Fatalf("remaining = %d, want 599", got)
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %s, want CLOSED", s.State())
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
}

func TestClosedSessionRefusesInputAndSubmit(t *testing.T) {
	hooked := 0
	s := startSession(t, 5, WithSubmitHook(func(model.SessionResult) { hooked++ }))
	s.Close()

	if err := s.SelectAnswer(0, 0); err != nil {
		t.Fatalf("SelectAnswer after Close: %v", err)
	}
	if got := s.Answers()[0]; got != Unanswered {
		t.Fatalf("answer recorded after Close: %d", got)
	}
	if err := s.GoTo(3); err != nil || s.Cursor() != 0 {
		t.Fatalf("GoTo after Close moved cursor to %d (err %v)", s.Cursor(), err)
	}

	res := s.Submit(model.TriggerManual)
	if res.SessionID != uuid.Nil || res.TotalQuestions != 0 {
		t.Fatalf("closed session scored: %+v", res)
	}
	if _, ok := s.Result(); ok {
		t.Fatal("closed session has a result")
	}
	if hooked != 0 {
		t.Fatalf("hook fired %d times", hooked)
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %s, want CLOSED", s.State())
	}
}

func TestCloseKeepsSubmittedResult(t *testing.T) {
	s := startSession(t, 5)
	want := s.Submit(model.TriggerManual)
	s.Close()
	if s.State() != StateSubmitted {
		t.Fatalf("state = %s, want SUBMITTED", s.State())
	}
	if got := s.Submit(model.TriggerTimeExpired); !reflect.DeepEqual(got, want) {
		t.Fatalf("result changed after Close")
	}
}

func TestViewHidesAnswerKey(t *testing.T) {
	id := uuid.New()
	s := startSession(t, 5, WithID(id))
	_ = s.SelectAnswer(2, 3)

	v := s.View()
	if v.SessionID != id {
		t.Fatalf("session id = %s, want %s", v.SessionID, id)
	}
	if v.AnsweredCount != 1 || v.Complete {
		t.Fatalf("answered = %d complete = %v, want 1 false", v.AnsweredCount, v.Complete)
	}
	if v.Current.ID != "q1" || len(v.Current.Options) != 4 {
		t.Fatalf("current = %+v", v.Current)
	}
	if v.Result != nil {
		t.Fatal("result present before submit")
	}
	if v.TotalSeconds != 600 || v.Clock != ClockRunning {
		t.Fatalf("clock = %s total = %d", v.Clock, v.TotalSeconds)
	}
}
