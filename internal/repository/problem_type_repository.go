package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// ProblemTypeRepository manages the problem type catalog.
type ProblemTypeRepository interface {
	Create(ctx context.Context, pt *domain.ProblemType) error
	RenameAll(ctx context.Context, types []domain.ProblemType) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.ProblemType, error)
	List(ctx context.Context) ([]domain.ProblemType, error)
	CountTickets(ctx context.Context, id string) (int, error)
}

type problemTypeRepository struct {
	pool *pgxpool.Pool
}

// NewProblemTypeRepository builds the repository.
func NewProblemTypeRepository(pool *pgxpool.Pool) ProblemTypeRepository {
	return &problemTypeRepository{pool: pool}
}

func (r *problemTypeRepository) Create(ctx context.Context, pt *domain.ProblemType) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO problem_types (name) VALUES ($1) RETURNING id`, pt.Name).Scan(&pt.ID)
	return mapWriteError(err)
}

// RenameAll applies every rename or none of them.
func (r *problemTypeRepository) RenameAll(ctx context.Context, types []domain.ProblemType) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, pt := range types {
			cmd, err := tx.Exec(ctx, `UPDATE problem_types SET name=$1 WHERE id=$2`, pt.Name, pt.ID)
			if err != nil {
				return mapWriteError(err)
			}
			if cmd.RowsAffected() == 0 {
				return pgx.ErrNoRows
			}
		}
		return nil
	})
}

func (r *problemTypeRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM problem_types WHERE id=$1`, id)
	if err != nil {
		return mapReadError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *problemTypeRepository) GetByID(ctx context.Context, id string) (*domain.ProblemType, error) {
	var pt domain.ProblemType
	if err := r.pool.QueryRow(ctx, `SELECT id, name FROM problem_types WHERE id=$1`, id).Scan(&pt.ID, &pt.Name); err != nil {
		return nil, mapReadError(err)
	}
	return &pt, nil
}

func (r *problemTypeRepository) List(ctx context.Context) ([]domain.ProblemType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM problem_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.ProblemType
	for rows.Next() {
		var pt domain.ProblemType
		if err := rows.Scan(&pt.ID, &pt.Name); err != nil {
			return nil, err
		}
		result = append(result, pt)
	}
	return result, rows.Err()
}

func (r *problemTypeRepository) CountTickets(ctx context.Context, id string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE problem_type_id=$1`, id).Scan(&count)
	return count, mapReadError(err)
}
