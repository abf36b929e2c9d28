package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters. All set fields are AND-combined.
type TicketFilter struct {
	RequesterID      *string
	HandlerID        *string
	ExcludeHandlerID *string
	StatusID         *string
	Municipality     *string
	ProblemTypeID    *string
	FinalizedOnly    bool
	Limit            int
}

// TicketTransition is a status change guarded by the status the caller observed.
type TicketTransition struct {
	ID               string
	ExpectedStatusID string
	StatusID         string
	LogEntry         string
	ResolvedAt       *time.Time
	ClearHandler     bool
	At               time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Capture(ctx context.Context, id, handlerID, capturedStatusID string, at time.Time) error
	ApplyTransition(ctx context.Context, tr TicketTransition) error
	ExpireLapsed(ctx context.Context, expiredStatusID string, windowDays int, now time.Time) (int64, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.TicketView, error)
	ListMunicipalities(ctx context.Context) ([]string, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, requester_user_id, municipality, device_serial, problem_type_id,
            description, status_id, photo_ref, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.RequesterID,
		ticket.Municipality,
		ticket.DeviceSerial,
		ticket.ProblemTypeID,
		ticket.Description,
		ticket.StatusID,
		ticket.PhotoRef,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return mapWriteError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, external_key, requester_user_id, municipality, device_serial, problem_type_id,
               description, status_id, photo_ref, solution_log, handler_user_id, resolved_at, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.RequesterID,
		&ticket.Municipality,
		&ticket.DeviceSerial,
		&ticket.ProblemTypeID,
		&ticket.Description,
		&ticket.StatusID,
		&ticket.PhotoRef,
		&ticket.SolutionLog,
		&ticket.HandlerID,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, mapReadError(err)
	}
	return &ticket, nil
}

// Capture claims a ticket only while it still sits in an initial status.
func (r *ticketRepository) Capture(ctx context.Context, id, handlerID, capturedStatusID string, at time.Time) error {
	const query = `
        UPDATE tickets SET handler_user_id=$1, status_id=$2, resolved_at=NULL, updated_at=$3
        WHERE id=$4 AND status_id IN (SELECT id FROM statuses WHERE kind = ANY($5))`
	initial := domain.KindsWhere(func(f domain.StatusFlags) bool { return f.Initial })
	cmd, err := r.pool.Exec(ctx, query, handlerID, capturedStatusID, at, id, kindStrings(initial))
	if err != nil {
		return mapReadError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleTicket
	}
	return nil
}

// ApplyTransition moves a ticket only if its status is still tr.ExpectedStatusID.
// The log entry is prepended in the same statement so concurrent notes are never lost.
func (r *ticketRepository) ApplyTransition(ctx context.Context, tr TicketTransition) error {
	const query = `
        UPDATE tickets SET status_id=$1,
            solution_log = $2 || solution_log,
            resolved_at=$3,
            handler_user_id = CASE WHEN $4::boolean THEN NULL ELSE handler_user_id END,
            updated_at=$5
        WHERE id=$6 AND status_id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		tr.StatusID,
		tr.LogEntry,
		tr.ResolvedAt,
		tr.ClearHandler,
		tr.At,
		tr.ID,
		tr.ExpectedStatusID,
	)
	if err != nil {
		return mapReadError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleTicket
	}
	return nil
}

// ExpireLapsed moves every reopenable ticket whose window has closed into the
// expired status in a single statement, so concurrent sweeps are harmless.
func (r *ticketRepository) ExpireLapsed(ctx context.Context, expiredStatusID string, windowDays int, now time.Time) (int64, error) {
	const query = `
        UPDATE tickets SET status_id=$1, resolved_at=NULL, updated_at=$2
        WHERE status_id IN (SELECT id FROM statuses WHERE kind = ANY($3))
          AND status_id <> $1
          AND resolved_at IS NOT NULL
          AND resolved_at + make_interval(days => $4::int) <= $2`
	cmd, err := r.pool.Exec(ctx, query, expiredStatusID, now, kindStrings(domain.ReopenableKinds()), windowDays)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.TicketView, error) {
	base := `SELECT t.id, t.external_key, t.requester_user_id, t.municipality, t.device_serial, t.problem_type_id,
                    t.description, t.status_id, t.photo_ref, t.solution_log, t.handler_user_id, t.resolved_at,
                    t.created_at, t.updated_at,
                    s.name, s.kind, pt.name, ru.email, ru.display_name, hu.display_name,
                    d.id, d.municipality, d.imei1, d.imei2, d.brand, d.model, d.capacity, d.serial_number,
                    d.delivered_on, d.usage_site, d.condition, d.asset_tag
             FROM tickets t
             JOIN statuses s ON s.id = t.status_id
             JOIN problem_types pt ON pt.id = t.problem_type_id
             JOIN users ru ON ru.id = t.requester_user_id
             LEFT JOIN users hu ON hu.id = t.handler_user_id
             LEFT JOIN devices d ON d.imei1 = t.device_serial`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("t.requester_user_id=$%d", len(args)))
	}
	if filter.HandlerID != nil {
		args = append(args, *filter.HandlerID)
		clauses = append(clauses, fmt.Sprintf("t.handler_user_id=$%d", len(args)))
	}
	if filter.ExcludeHandlerID != nil {
		args = append(args, *filter.ExcludeHandlerID)
		clauses = append(clauses, fmt.Sprintf("(t.handler_user_id IS NULL OR t.handler_user_id<>$%d)", len(args)))
	}
	if filter.StatusID != nil {
		args = append(args, *filter.StatusID)
		clauses = append(clauses, fmt.Sprintf("t.status_id=$%d", len(args)))
	}
	if filter.Municipality != nil {
		args = append(args, *filter.Municipality)
		clauses = append(clauses, fmt.Sprintf("t.municipality=$%d", len(args)))
	}
	if filter.ProblemTypeID != nil {
		args = append(args, *filter.ProblemTypeID)
		clauses = append(clauses, fmt.Sprintf("t.problem_type_id=$%d", len(args)))
	}
	if filter.FinalizedOnly {
		args = append(args, kindStrings(domain.FinalKinds()))
		clauses = append(clauses, fmt.Sprintf("s.kind = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC`, base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err == nil {
		defer rows.Close()
		var views []domain.TicketView
		if views, err = scanTicketViews(rows); err == nil {
			return views, nil
		}
	}
	// A malformed id filter cannot match any ticket.
	if errors.Is(mapReadError(err), pgx.ErrNoRows) {
		return nil, nil
	}
	return nil, err
}

func (r *ticketRepository) ListMunicipalities(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT municipality FROM tickets ORDER BY municipality`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// joinedDevice holds the nullable columns of the device LEFT JOIN.
type joinedDevice struct {
	ID, Municipality, IMEI1, IMEI2, Brand, Model, Capacity *string
	SerialNumber, DeliveredOn, UsageSite, Condition, AssetTag *string
}

func (d joinedDevice) toDevice() *domain.Device {
	if d.ID == nil {
		return nil
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return &domain.Device{
		ID:           *d.ID,
		Municipality: deref(d.Municipality),
		IMEI1:        deref(d.IMEI1),
		IMEI2:        deref(d.IMEI2),
		Brand:        deref(d.Brand),
		Model:        deref(d.Model),
		Capacity:     deref(d.Capacity),
		SerialNumber: deref(d.SerialNumber),
		DeliveredOn:  deref(d.DeliveredOn),
		UsageSite:    deref(d.UsageSite),
		Condition:    deref(d.Condition),
		AssetTag:     deref(d.AssetTag),
	}
}

func scanTicketViews(rows pgx.Rows) ([]domain.TicketView, error) {
	var result []domain.TicketView
	for rows.Next() {
		var view domain.TicketView
		var dev joinedDevice
		if err := rows.Scan(
			&view.ID,
			&view.ExternalKey,
			&view.RequesterID,
			&view.Municipality,
			&view.DeviceSerial,
			&view.ProblemTypeID,
			&view.Description,
			&view.StatusID,
			&view.PhotoRef,
			&view.SolutionLog,
			&view.HandlerID,
			&view.ResolvedAt,
			&view.CreatedAt,
			&view.UpdatedAt,
			&view.Status.Name,
			&view.Status.Kind,
			&view.ProblemTypeName,
			&view.RequesterEmail,
			&view.RequesterName,
			&view.HandlerName,
			&dev.ID, &dev.Municipality, &dev.IMEI1, &dev.IMEI2, &dev.Brand, &dev.Model, &dev.Capacity,
			&dev.SerialNumber, &dev.DeliveredOn, &dev.UsageSite, &dev.Condition, &dev.AssetTag,
		); err != nil {
			return nil, err
		}
		view.Status.ID = view.StatusID
		view.Device = dev.toDevice()
		result = append(result, view)
	}
	return result, rows.Err()
}
