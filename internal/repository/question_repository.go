package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-prep/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListBySpecialization retrieves every question tagged with specialization, in insertion order.
func (r *QuestionRepository) ListBySpecialization(ctx context.Context, specialization string) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, specialization, question_text, options, correct_option, difficulty, marks,
		        attachment_kind, attachment_content
		 FROM questions WHERE specialization = $1
		 ORDER BY seq`, specialization,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q             model.Question
			attachKind    *string
			attachContent *string
		)
		if err := rows.Scan(&q.ID, &q.Specialization, &q.Text, &q.Options, &q.CorrectOption, &q.Difficulty, &q.Marks, &attachKind, &attachContent); err != nil {
			return nil, err
		}
		if attachKind != nil {
			q.Attachment = &model.Attachment{Kind: model.AttachmentKind(*attachKind)}
			if attachContent != nil {
				q.Attachment.Content = *attachContent
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// InsertMany upserts questions in a single transaction. Existing IDs keep their bank position.
func (r *QuestionRepository) InsertMany(ctx context.Context, questions []model.Question) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, q := range questions {
		var kind, content *string
		if q.Attachment != nil {
			k := string(q.Attachment.Kind)
			kind, content = &k, &q.Attachment.Content
		}
		batch.Queue(
			`INSERT INTO questions (id, specialization, question_text, options, correct_option, difficulty, marks, attachment_kind, attachment_content)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			     specialization = EXCLUDED.specialization,
			     question_text = EXCLUDED.question_text,
			     options = EXCLUDED.options,
			     correct_option = EXCLUDED.correct_option,
			     difficulty = EXCLUDED.difficulty,
			     marks = EXCLUDED.marks,
			     attachment_kind = EXCLUDED.attachment_kind,
			     attachment_content = EXCLUDED.attachment_content`,
			q.ID, q.Specialization, q.Text, q.Options, q.CorrectOption, string(q.Difficulty), q.Marks, kind, content,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range questions {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("insert question %q: %w", questions[i].ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(questions), nil
}

// CountBySpecialization returns the number of stored questions per specialization.
func (r *QuestionRepository) CountBySpecialization(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT specialization, COUNT(*) FROM questions GROUP BY specialization`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var spec string
		var n int
		if err := rows.Scan(&spec, &n); err != nil {
			return nil, err
		}
		counts[spec] = n
	}
	return counts, rows.Err()
}
