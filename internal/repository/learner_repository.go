package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeclass/codeclass-backend/internal/model"
)

// LearnerRepository handles learner account data access.
type LearnerRepository struct {
	pool *pgxpool.Pool
}

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(pool *pgxpool.Pool) *LearnerRepository {
	return &LearnerRepository{pool: pool}
}

// GetByUsername retrieves a learner by username, for login.
func (r *LearnerRepository) GetByUsername(ctx context.Context, username string) (*model.Learner, error) {
	l := &model.Learner{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at, updated_at
		 FROM learners WHERE username = $1`, username,
	).Scan(&l.ID, &l.Username, &l.Name, &l.PasswordHash, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetByID retrieves a learner by id.
func (r *LearnerRepository) GetByID(ctx context.Context, id int) (*model.Learner, error) {
	l := &model.Learner{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at, updated_at
		 FROM learners WHERE id = $1`, id,
	).Scan(&l.ID, &l.Username, &l.Name, &l.PasswordHash, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Create inserts a new learner account.
func (r *LearnerRepository) Create(ctx context.Context, l *model.Learner) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO learners (username, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		l.Username, l.Name, l.PasswordHash,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// List retrieves all learners ordered by name.
func (r *LearnerRepository) List(ctx context.Context) ([]model.Learner, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, name, password_hash, created_at, updated_at
		 FROM learners ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var learners []model.Learner
	for rows.Next() {
		var l model.Learner
		if err := rows.Scan(&l.ID, &l.Username, &l.Name, &l.PasswordHash, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		learners = append(learners, l)
	}
	return learners, rows.Err()
}
