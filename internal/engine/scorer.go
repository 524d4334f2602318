package engine

import "github.com/stemsi/exstem-prep/internal/model"

// Score is the raw output of a Scorer, before session metadata is attached.
type Score struct {
	Total     int
	Correct   int
	Answered  int
	Marks     int
	Questions []model.QuestionResult
}

// Scorer grades a snapshot of answers against a question set. Implementations must be
// pure: the same inputs always produce the same Score.
type Scorer interface {
	Score(set QuestionSet, answers Snapshot) Score
}

// DefaultScorer awards a question when the selected option equals the correct option.
// Unanswered positions are never correct.
type DefaultScorer struct{}

// Score implements Scorer.
func (DefaultScorer) Score(set QuestionSet, answers Snapshot) Score {
	n := set.Len()
	out := Score{
		Total:     n,
		Questions: make([]model.QuestionResult, n),
	}

	for i := 0; i < n; i++ {
		q := set.at(i)
		selected := Unanswered
		if i < len(answers) {
			selected = answers[i]
		}

		qr := model.QuestionResult{
			Position:       i,
			QuestionID:     q.ID,
			QuestionText:   q.Text,
			SelectedOption: selected,
			UserAnswer:     model.NotAnswered,
			CorrectOption:  q.CorrectOption,
			CorrectAnswer:  q.Options[q.CorrectOption],
		}
		if selected >= 0 && selected < len(q.Options) {
			out.Answered++
			qr.UserAnswer = q.Options[selected]
			qr.IsCorrect = selected == q.CorrectOption
		}
		if qr.IsCorrect {
			out.Correct++
			qr.Marks = q.Marks
			out.Marks += q.Marks
		}
		out.Questions[i] = qr
	}
	return out
}

// Percentage returns correct/total*100 rounded half up. total must be positive.
func Percentage(correct, total int) int {
	return (200*correct + total) / (2 * total)
}
