package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeclass/codeclass-backend/internal/model"
)

// InstructorRepository handles instructor account data access.
type InstructorRepository struct {
	pool *pgxpool.Pool
}

// NewInstructorRepository creates a new InstructorRepository.
func NewInstructorRepository(pool *pgxpool.Pool) *InstructorRepository {
	return &InstructorRepository{pool: pool}
}

// GetByEmail retrieves an instructor by email, for login.
func (r *InstructorRepository) GetByEmail(ctx context.Context, email string) (*model.Instructor, error) {
	in := &model.Instructor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM instructors WHERE email = $1`, email,
	).Scan(&in.ID, &in.Email, &in.Name, &in.PasswordHash, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return in, nil
}

// GetByID retrieves an instructor by id.
func (r *InstructorRepository) GetByID(ctx context.Context, id int) (*model.Instructor, error) {
	in := &model.Instructor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM instructors WHERE id = $1`, id,
	).Scan(&in.ID, &in.Email, &in.Name, &in.PasswordHash, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return in, nil
}

// Create inserts a new instructor account.
func (r *InstructorRepository) Create(ctx context.Context, in *model.Instructor) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO instructors (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		in.Email, in.Name, in.PasswordHash,
	).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
}
