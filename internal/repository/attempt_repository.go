package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeclass/codeclass-backend/internal/model"
)

// AttemptResult combines learner data with their attempt outcome, for the
// instructor results view.
type AttemptResult struct {
	LearnerID   int        `json:"learner_id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	OpenedAt    time.Time  `json:"opened_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	FinalScore  *float64   `json:"final_score"`
}

// AttemptRepository handles attempt record data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new attempt (learner starts the assessment). The unique
// (assessment_id, learner_id) constraint makes the start idempotent: when an
// attempt already exists nothing is inserted and pgx.ErrNoRows comes back,
// the caller re-fetches the existing record.
func (r *AttemptRepository) Create(ctx context.Context, a *model.AttemptRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (assessment_id, learner_id, base_duration_minutes)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (assessment_id, learner_id) DO NOTHING
		 RETURNING id, opened_at`,
		a.AssessmentID, a.LearnerID, a.BaseDurationMinutes,
	).Scan(&a.ID, &a.OpenedAt)
}

// GetByAssessmentAndLearner retrieves an attempt for a specific
// assessment-learner combination.
func (r *AttemptRepository) GetByAssessmentAndLearner(ctx context.Context, assessmentID uuid.UUID, learnerID int) (*model.AttemptRecord, error) {
	a := &model.AttemptRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, assessment_id, learner_id, opened_at, base_duration_minutes, extension_minutes, submitted_at, final_score
		 FROM attempts
		 WHERE assessment_id = $1 AND learner_id = $2`, assessmentID, learnerID,
	).Scan(&a.ID, &a.AssessmentID, &a.LearnerID, &a.OpenedAt, &a.BaseDurationMinutes, &a.ExtensionMinutes, &a.SubmittedAt, &a.FinalScore)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by id.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AttemptRecord, error) {
	a := &model.AttemptRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, assessment_id, learner_id, opened_at, base_duration_minutes, extension_minutes, submitted_at, final_score
		 FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.AssessmentID, &a.LearnerID, &a.OpenedAt, &a.BaseDurationMinutes, &a.ExtensionMinutes, &a.SubmittedAt, &a.FinalScore)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GrantExtension adds instructor-granted minutes to an open attempt and
// returns the updated record. A submitted attempt is not extendable;
// pgx.ErrNoRows comes back in that case.
func (r *AttemptRepository) GrantExtension(ctx context.Context, attemptID uuid.UUID, minutes int) (*model.AttemptRecord, error) {
	a := &model.AttemptRecord{}
	err := r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET extension_minutes = extension_minutes + $1
		 WHERE id = $2 AND submitted_at IS NULL
		 RETURNING id, assessment_id, learner_id, opened_at, base_duration_minutes, extension_minutes, submitted_at, final_score`,
		minutes, attemptID,
	).Scan(&a.ID, &a.AssessmentID, &a.LearnerID, &a.OpenedAt, &a.BaseDurationMinutes, &a.ExtensionMinutes, &a.SubmittedAt, &a.FinalScore)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Submit commits an attempt in one transaction: the conditional close on
// submitted_at plus the final answer rows. When another submitter already
// closed the attempt (zero rows updated) nothing is written and already=true
// comes back; the commit stays at most once per attempt.
func (r *AttemptRepository) Submit(ctx context.Context, attemptID uuid.UUID, answers []model.AnswerSubmission, finalScore float64) (already bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET submitted_at = NOW(), final_score = $1
		 WHERE id = $2 AND submitted_at IS NULL`,
		finalScore, attemptID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return true, nil
	}

	for _, ans := range answers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO attempt_answers (attempt_id, question_id, raw, is_correct, points_earned, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 ON CONFLICT (attempt_id, question_id)
			 DO UPDATE SET raw = EXCLUDED.raw, is_correct = EXCLUDED.is_correct,
			               points_earned = EXCLUDED.points_earned, updated_at = NOW()`,
			attemptID, ans.QuestionID, ans.Raw, ans.IsCorrect, ans.PointsEarned,
		); err != nil {
			return false, err
		}
	}

	return false, tx.Commit(ctx)
}

// ListByAssessment retrieves learner results for an assessment with
// pagination.
func (r *AttemptRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID, page, perPage int) ([]AttemptResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE assessment_id = $1`, assessmentID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.username, l.name, a.opened_at, a.submitted_at, a.final_score
		 FROM attempts a
		 JOIN learners l ON a.learner_id = l.id
		 WHERE a.assessment_id = $1
		 ORDER BY l.name
		 LIMIT $2 OFFSET $3`, assessmentID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptResult
	for rows.Next() {
		var res AttemptResult
		if err := rows.Scan(&res.LearnerID, &res.Username, &res.Name, &res.OpenedAt, &res.SubmittedAt, &res.FinalScore); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
