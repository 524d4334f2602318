package engine

// Unanswered marks a position with no selected option.
const Unanswered = -1

// Snapshot is a point-in-time copy of a tracker's answers, indexed by position.
type Snapshot []int

// Answered reports whether position i holds a selection.
func (s Snapshot) Answered(i int) bool { return s[i] != Unanswered }

// AnswerTracker records the option selected at each position.
// It validates position bounds only; option bounds belong to the caller.
type AnswerTracker struct {
	answers []int
}

// NewAnswerTracker returns a tracker of size n with every position unanswered.
func NewAnswerTracker(n int) *AnswerTracker {
	answers := make([]int, n)
	for i := range answers {
		answers[i] = Unanswered
	}
	return &AnswerTracker{answers: answers}
}

// Len returns the fixed number of positions.
func (t *AnswerTracker) Len() int { return len(t.answers) }

// Set records option at position.
func (t *AnswerTracker) Set(position, option int) error {
	if err := checkRange("position", position, len(t.answers)); err != nil {
		return err
	}
	t.answers[position] = option
	return nil
}

// Get returns the option at position, or Unanswered.
func (t *AnswerTracker) Get(position int) (int, error) {
	if err := checkRange("position", position, len(t.answers)); err != nil {
		return Unanswered, err
	}
	return t.answers[position], nil
}

// Snapshot returns a copy that later Set calls do not affect.
func (t *AnswerTracker) Snapshot() Snapshot {
	return append(Snapshot(nil), t.answers...)
}

// AnsweredCount returns the number of answered positions.
func (t *AnswerTracker) AnsweredCount() int {
	n := 0
	for _, a := range t.answers {
		if a != Unanswered {
			n++
		}
	}
	return n
}

// IsFullyAnswered reports whether no position is unanswered.
func (t *AnswerTracker) IsFullyAnswered() bool {
	return t.AnsweredCount() == len(t.answers)
}
