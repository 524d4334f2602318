package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-prep/internal/model"
)

// ResultRepository handles persisted session results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

const upsertResultSQL = `
	INSERT INTO session_results (
		session_id, user_id, title, kind, specialization, mode, trigger,
		total_questions, correct_count, percentage, score, elapsed_seconds, unanswered,
		started_at, submitted_at, questions
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (session_id) DO NOTHING`

// Upsert stores one result. A session that is already stored is left untouched.
func (r *ResultRepository) Upsert(ctx context.Context, rec model.ResultRecord) error {
	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, upsertResultSQL,
		rec.SessionID, rec.UserID, rec.Title, string(rec.Kind), rec.Specialization, string(rec.Mode), string(rec.Trigger),
		rec.TotalQuestions, rec.CorrectCount, rec.Percentage, rec.Score, rec.ElapsedSeconds, rec.Unanswered,
		rec.StartedAt, rec.SubmittedAt, questions,
	)
	return err
}

// UpsertMany stores a batch of results with one UNNEST insert.
func (r *ResultRepository) UpsertMany(ctx context.Context, recs []model.ResultRecord) error {
	n := len(recs)
	if n == 0 {
		return nil
	}

	var (
		ids           = make([]uuid.UUID, n)
		users         = make([]int, n)
		titles        = make([]string, n)
		kinds         = make([]string, n)
		specs         = make([]string, n)
		modes         = make([]string, n)
		triggers      = make([]string, n)
		totals        = make([]int, n)
		corrects      = make([]int, n)
		percentages   = make([]int, n)
		scores        = make([]int, n)
		elapsed       = make([]int, n)
		unanswered    = make([]int, n)
		startedAts    = make([]time.Time, n)
		submittedAts  = make([]time.Time, n)
		questionBlobs = make([]string, n)
	)
	for i, rec := range recs {
		blob, err := json.Marshal(rec.Questions)
		if err != nil {
			return err
		}
		ids[i] = rec.SessionID
		users[i] = rec.UserID
		titles[i] = rec.Title
		kinds[i] = string(rec.Kind)
		specs[i] = rec.Specialization
		modes[i] = string(rec.Mode)
		triggers[i] = string(rec.Trigger)
		totals[i] = rec.TotalQuestions
		corrects[i] = rec.CorrectCount
		percentages[i] = rec.Percentage
		scores[i] = rec.Score
		elapsed[i] = rec.ElapsedSeconds
		unanswered[i] = rec.Unanswered
		startedAts[i] = rec.StartedAt
		submittedAts[i] = rec.SubmittedAt
		questionBlobs[i] = string(blob)
	}

	query := `
		INSERT INTO session_results (
			session_id, user_id, title, kind, specialization, mode, trigger,
			total_questions, correct_count, percentage, score, elapsed_seconds, unanswered,
			started_at, submitted_at, questions
		)
		SELECT u.session_id, u.user_id, u.title, u.kind, u.specialization, u.mode, u.trigger,
		       u.total_questions, u.correct_count, u.percentage, u.score, u.elapsed_seconds, u.unanswered,
		       u.started_at, u.submitted_at, u.questions::jsonb
		FROM UNNEST(
			$1::uuid[], $2::int[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[],
			$8::int[], $9::int[], $10::int[], $11::int[], $12::int[], $13::int[],
			$14::timestamptz[], $15::timestamptz[], $16::text[]
		) AS u (
			session_id, user_id, title, kind, specialization, mode, trigger,
			total_questions, correct_count, percentage, score, elapsed_seconds, unanswered,
			started_at, submitted_at, questions
		)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		ids, users, titles, kinds, specs, modes, triggers,
		totals, corrects, percentages, scores, elapsed, unanswered,
		startedAts, submittedAts, questionBlobs,
	)
	return err
}

const resultColumns = `session_id, title, kind, specialization, mode, trigger,
	total_questions, correct_count, percentage, score, elapsed_seconds, unanswered,
	started_at, submitted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner, extra ...any) (model.SessionResult, error) {
	var res model.SessionResult
	dest := []any{
		&res.SessionID, &res.Title, &res.Kind, &res.Specialization, &res.Mode, &res.Trigger,
		&res.TotalQuestions, &res.CorrectCount, &res.Percentage, &res.Score, &res.ElapsedSeconds, &res.Unanswered,
		&res.StartedAt, &res.SubmittedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return res, err
	}
	res.IncorrectCount = res.TotalQuestions - res.CorrectCount
	return res, nil
}

// ListByUser returns a page of a user's results, newest first, without per-question detail.
func (r *ResultRepository) ListByUser(ctx context.Context, userID, page, perPage int) ([]model.SessionResult, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_results WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+`
		 FROM session_results
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC
		 LIMIT $2 OFFSET $3`, userID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := make([]model.SessionResult, 0, perPage)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

// GetByID retrieves one of a user's results with per-question detail.
// It returns pgx.ErrNoRows when the result does not exist or belongs to someone else.
func (r *ResultRepository) GetByID(ctx context.Context, userID int, sessionID uuid.UUID) (*model.SessionResult, error) {
	var blob []byte
	row := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+`, questions
		 FROM session_results
		 WHERE session_id = $1 AND user_id = $2`, sessionID, userID,
	)
	res, err := scanResult(row, &blob)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(blob, &res.Questions); err != nil {
		return nil, err
	}
	return &res, nil
}
