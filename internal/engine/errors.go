package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestionSet is returned when a session is started without questions.
	ErrEmptyQuestionSet = errors.New("question set is empty")
	// ErrInvalidConfig is matched by every *InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrOutOfRange is matched by every *OutOfRangeError.
	ErrOutOfRange = errors.New("out of range")
	// ErrInvalidBudget is returned by Clock.Start for a non-positive budget.
	ErrInvalidBudget = errors.New("clock budget must be positive")
	// ErrClockStarted is returned by Clock.Start when the clock is not idle.
	ErrClockStarted = errors.New("clock already started")
)

// InvalidConfigError reports a SessionConfig field that cannot start a session.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid session config: %s: %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// OutOfRangeError reports a position or option index outside [0, Limit).
type OutOfRangeError struct {
	Field string
	Value int
	Limit int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [0,%d)", e.Field, e.Value, e.Limit)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

func checkRange(field string, value, limit int) error {
	if value < 0 || value >= limit {
		return &OutOfRangeError{Field: field, Value: value, Limit: limit}
	}
	return nil
}
