package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// StatusCount is the number of tickets currently in a status.
type StatusCount struct {
	Status domain.Status
	Count  int
}

// ProblemTypeCount is the number of tickets filed under a problem type.
type ProblemTypeCount struct {
	ProblemType domain.ProblemType
	Count       int
}

// DashboardRepository computes ticket aggregates.
type DashboardRepository interface {
	StatusCounts(ctx context.Context, requesterID *string) ([]StatusCount, error)
	ProblemTypeCounts(ctx context.Context) ([]ProblemTypeCount, error)
}

type dashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository builds the repository.
func NewDashboardRepository(pool *pgxpool.Pool) DashboardRepository {
	return &dashboardRepository{pool: pool}
}

// StatusCounts returns one row per status, including empty ones. When
// requesterID is set only that requester's tickets are counted.
func (r *dashboardRepository) StatusCounts(ctx context.Context, requesterID *string) ([]StatusCount, error) {
	const query = `
        SELECT s.id, s.name, s.kind, COUNT(t.id)
        FROM statuses s
        LEFT JOIN tickets t ON t.status_id = s.id AND ($1::uuid IS NULL OR t.requester_user_id = $1)
        GROUP BY s.id, s.name, s.kind
        ORDER BY s.name`
	rows, err := r.pool.Query(ctx, query, requesterID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatusCount, error) {
		var sc StatusCount
		err := row.Scan(&sc.Status.ID, &sc.Status.Name, &sc.Status.Kind, &sc.Count)
		return sc, err
	})
}

func (r *dashboardRepository) ProblemTypeCounts(ctx context.Context) ([]ProblemTypeCount, error) {
	const query = `
        SELECT pt.id, pt.name, COUNT(t.id) AS total
        FROM tickets t
        JOIN problem_types pt ON pt.id = t.problem_type_id
        GROUP BY pt.id, pt.name
        ORDER BY total DESC, pt.name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProblemTypeCount, error) {
		var pc ProblemTypeCount
		err := row.Scan(&pc.ProblemType.ID, &pc.ProblemType.Name, &pc.Count)
		return pc, err
	})
}
