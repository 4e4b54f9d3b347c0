package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeclass/codeclass-backend/internal/model"
)

// AnswerRepository handles attempt answer rows: drafts persisted by the
// autosave worker, evaluation snapshots persisted by the evaluation worker,
// and the saved answers read back when a session is loaded.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// ListByAttempt retrieves all saved answers for an attempt.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, raw, is_correct, points_earned, updated_at
		 FROM attempt_answers WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AttemptAnswer
	for rows.Next() {
		var a model.AttemptAnswer
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.Raw, &a.IsCorrect, &a.PointsEarned, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// UpsertDraft writes a draft answer. Drafts never touch an already
// submitted attempt's rows; the evaluation snapshot is left as is.
func (r *AnswerRepository) UpsertDraft(ctx context.Context, attemptID, questionID uuid.UUID, raw string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, raw, updated_at)
		 SELECT $1, $2, $3, NOW()
		 WHERE EXISTS (SELECT 1 FROM attempts WHERE id = $1 AND submitted_at IS NULL)
		 ON CONFLICT (attempt_id, question_id)
		 DO UPDATE SET raw = EXCLUDED.raw, updated_at = NOW()
		 WHERE (SELECT submitted_at FROM attempts WHERE id = $1) IS NULL`,
		attemptID, questionID, raw)
	return err
}

// BulkUpsertEvaluations writes a batch of evaluation snapshots in one
// statement using UNNEST. Snapshots for already submitted attempts are
// skipped; the committed payload is authoritative there.
func (r *AnswerRepository) BulkUpsertEvaluations(ctx context.Context, batch []model.AttemptAnswer) error {
	n := len(batch)
	attemptIDs := make([]uuid.UUID, 0, n)
	questionIDs := make([]uuid.UUID, 0, n)
	raws := make([]string, 0, n)
	corrects := make([]bool, 0, n)
	points := make([]int32, 0, n)

	for _, a := range batch {
		correct := a.IsCorrect != nil && *a.IsCorrect
		attemptIDs = append(attemptIDs, a.AttemptID)
		questionIDs = append(questionIDs, a.QuestionID)
		raws = append(raws, a.Raw)
		corrects = append(corrects, correct)
		points = append(points, int32(a.PointsEarned))
	}

	query := `
		INSERT INTO attempt_answers (attempt_id, question_id, raw, is_correct, points_earned, updated_at)
		SELECT u.attempt_id, u.question_id, u.raw, u.is_correct, u.points_earned, NOW()
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::text[],
			$4::bool[],
			$5::int4[]
		) AS u (attempt_id, question_id, raw, is_correct, points_earned)
		JOIN attempts a ON a.id = u.attempt_id AND a.submitted_at IS NULL
		ON CONFLICT (attempt_id, question_id)
		DO UPDATE SET raw = EXCLUDED.raw, is_correct = EXCLUDED.is_correct,
		              points_earned = EXCLUDED.points_earned, updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, attemptIDs, questionIDs, raws, corrects, points)
	return err
}

// UpsertEvaluation writes a single evaluation snapshot, the fallback path
// when a bulk write fails.
func (r *AnswerRepository) UpsertEvaluation(ctx context.Context, a model.AttemptAnswer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, raw, is_correct, points_earned, updated_at)
		 SELECT $1, $2, $3, $4, $5, NOW()
		 WHERE EXISTS (SELECT 1 FROM attempts WHERE id = $1 AND submitted_at IS NULL)
		 ON CONFLICT (attempt_id, question_id)
		 DO UPDATE SET raw = EXCLUDED.raw, is_correct = EXCLUDED.is_correct,
		               points_earned = EXCLUDED.points_earned, updated_at = NOW()
		 WHERE (SELECT submitted_at FROM attempts WHERE id = $1) IS NULL`,
		a.AttemptID, a.QuestionID, a.Raw, a.IsCorrect, a.PointsEarned)
	return err
}
