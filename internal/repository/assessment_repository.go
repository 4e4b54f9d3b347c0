package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeclass/codeclass-backend/internal/model"
)

// AssessmentRepository handles assessment data access.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// Create inserts a new assessment in DRAFT status.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments (title, author_id, language, language_version, duration_minutes, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		a.Title, a.AuthorID, a.Language, a.LanguageVersion, a.DurationMinutes, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves an assessment regardless of status.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, author_id, language, language_version, duration_minutes, status, created_at, updated_at
		 FROM assessments WHERE id = $1`, id,
	).Scan(&a.ID, &a.Title, &a.AuthorID, &a.Language, &a.LanguageVersion, &a.DurationMinutes, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetPublished retrieves an assessment only if it is published.
func (r *AssessmentRepository) GetPublished(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, author_id, language, language_version, duration_minutes, status, created_at, updated_at
		 FROM assessments WHERE id = $1 AND status = $2`, id, model.AssessmentStatusPublished,
	).Scan(&a.ID, &a.Title, &a.AuthorID, &a.Language, &a.LanguageVersion, &a.DurationMinutes, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListPublished retrieves all published assessments, newest first.
func (r *AssessmentRepository) ListPublished(ctx context.Context) ([]model.Assessment, error) {
	return r.list(ctx,
		`SELECT id, title, author_id, language, language_version, duration_minutes, status, created_at, updated_at
		 FROM assessments WHERE status = $1
		 ORDER BY created_at DESC`, model.AssessmentStatusPublished)
}

// ListByAuthor retrieves an instructor's assessments, newest first.
func (r *AssessmentRepository) ListByAuthor(ctx context.Context, authorID int) ([]model.Assessment, error) {
	return r.list(ctx,
		`SELECT id, title, author_id, language, language_version, duration_minutes, status, created_at, updated_at
		 FROM assessments WHERE author_id = $1
		 ORDER BY created_at DESC`, authorID)
}

func (r *AssessmentRepository) list(ctx context.Context, query string, args ...any) ([]model.Assessment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []model.Assessment
	for rows.Next() {
		var a model.Assessment
		if err := rows.Scan(&a.ID, &a.Title, &a.AuthorID, &a.Language, &a.LanguageVersion, &a.DurationMinutes, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

// UpdateStatus transitions an assessment, returning the number of affected
// rows so callers can enforce status preconditions.
func (r *AssessmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AssessmentStatus) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assessments SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
