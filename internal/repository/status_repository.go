package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// StatusRepository manages the status catalog.
type StatusRepository interface {
	Create(ctx context.Context, status *domain.Status) error
	UpdateAll(ctx context.Context, statuses []domain.Status) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Status, error)
	List(ctx context.Context) ([]domain.Status, error)
	ListByKind(ctx context.Context, kinds ...domain.StatusKind) ([]domain.Status, error)
	CountTickets(ctx context.Context, id string) (int, error)
}

type statusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository builds the repository.
func NewStatusRepository(pool *pgxpool.Pool) StatusRepository {
	return &statusRepository{pool: pool}
}

func (r *statusRepository) Create(ctx context.Context, status *domain.Status) error {
	const query = `INSERT INTO statuses (name, kind) VALUES ($1,$2) RETURNING id`
	err := r.pool.QueryRow(ctx, query, status.Name, status.Kind).Scan(&status.ID)
	return mapWriteError(err)
}

// UpdateAll rewrites names and kinds of the given statuses in one transaction.
// Kinds are cleared first so a batch may move the initial role between statuses
// without tripping the single-initial index halfway through.
func (r *statusRepository) UpdateAll(ctx context.Context, statuses []domain.Status) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, st := range statuses {
			if _, err := tx.Exec(ctx, `UPDATE statuses SET kind='AWAITING' WHERE id=$1`, st.ID); err != nil {
				return mapReadError(err)
			}
		}
		for _, st := range statuses {
			cmd, err := tx.Exec(ctx, `UPDATE statuses SET name=$1, kind=$2 WHERE id=$3`, st.Name, st.Kind, st.ID)
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

func (r *statusRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM statuses WHERE id=$1`, id)
	if err != nil {
		return mapReadError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *statusRepository) GetByID(ctx context.Context, id string) (*domain.Status, error) {
	const query = `SELECT id, name, kind FROM statuses WHERE id=$1`
	var st domain.Status
	if err := r.pool.QueryRow(ctx, query, id).Scan(&st.ID, &st.Name, &st.Kind); err != nil {
		return nil, mapReadError(err)
	}
	return &st, nil
}

func (r *statusRepository) List(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, kind FROM statuses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collectStatuses(rows)
}

func (r *statusRepository) ListByKind(ctx context.Context, kinds ...domain.StatusKind) ([]domain.Status, error) {
	const query = `SELECT id, name, kind FROM statuses WHERE kind = ANY($1) ORDER BY name, id`
	rows, err := r.pool.Query(ctx, query, kindStrings(kinds))
	if err != nil {
		return nil, err
	}
	return collectStatuses(rows)
}

func (r *statusRepository) CountTickets(ctx context.Context, id string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE status_id=$1`, id).Scan(&count)
	return count, mapReadError(err)
}

func collectStatuses(rows pgx.Rows) ([]domain.Status, error) {
	defer rows.Close()
	var result []domain.Status
	for rows.Next() {
		var st domain.Status
		if err := rows.Scan(&st.ID, &st.Name, &st.Kind); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}
