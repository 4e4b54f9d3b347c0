package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeclass/codeclass-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByAssessment retrieves all questions for an assessment, ordered by order_num.
func (r *QuestionRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assessment_id, question_text, kind, points, order_num, expected_output, starter_code, options, correct_option_value
		 FROM questions WHERE assessment_id = $1
		 ORDER BY order_num`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.Text, &q.Kind, &q.Points, &q.OrderNum, &q.ExpectedOutput, &q.StarterCode, &q.Options, &q.CorrectOptionValue); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (assessment_id, question_text, kind, points, order_num, expected_output, starter_code, options, correct_option_value)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		q.AssessmentID, q.Text, q.Kind, q.Points, q.OrderNum, q.ExpectedOutput, q.StarterCode, q.Options, q.CorrectOptionValue,
	).Scan(&q.ID)
}

// CountByAssessment returns the number of questions in an assessment.
func (r *QuestionRepository) CountByAssessment(ctx context.Context, assessmentID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE assessment_id = $1`, assessmentID,
	).Scan(&count)
	return count, err
}
