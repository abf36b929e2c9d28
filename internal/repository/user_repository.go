package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id, hash string, mustReset bool) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Search(ctx context.Context, term string) ([]domain.User, error)
	FirstRequesterIn(ctx context.Context, municipality string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, email, password_hash, municipality, display_name, phone, must_reset_password, is_admin,
    created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, password_hash, municipality, display_name, phone, must_reset_password, is_admin)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.Municipality,
		user.DisplayName,
		user.Phone,
		user.MustResetPassword,
		user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapWriteError(err)
}

// CreateIfAbsent inserts the user unless the email is already taken.
func (r *userRepository) CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error) {
	err := r.Create(ctx, user)
	if errors.Is(err, ErrDuplicate) {
		return false, nil
	}
	return err == nil, err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, municipality=$2, display_name=$3, phone=$4, must_reset_password=$5,
            is_admin=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		user.Email,
		user.Municipality,
		user.DisplayName,
		user.Phone,
		user.MustResetPassword,
		user.IsAdmin,
		user.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return mapReadError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) SetPassword(ctx context.Context, id, hash string, mustReset bool) error {
	const query = `UPDATE users SET password_hash=$1, must_reset_password=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, hash, mustReset, id)
	if err != nil {
		return mapReadError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if err != nil {
		return nil, mapReadError(err)
	}
	user, err := pgx.CollectOneRow(rows, scanUser)
	return user, mapReadError(err)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, scanUser)
}

// Search matches term against name, email and municipality, case-insensitively.
func (r *userRepository) Search(ctx context.Context, term string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if term = strings.TrimSpace(term); term != "" {
		args = append(args, "%"+term+"%")
		query += ` WHERE display_name ILIKE $1 OR email ILIKE $1 OR municipality ILIKE $1`
	}
	query += ` ORDER BY display_name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, err
	}
	result := make([]domain.User, 0, len(users))
	for _, u := range users {
		result = append(result, *u)
	}
	return result, nil
}

// FirstRequesterIn returns the first non-admin account of a municipality.
func (r *userRepository) FirstRequesterIn(ctx context.Context, municipality string) (*domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE municipality=$1 AND is_admin=FALSE ORDER BY created_at, id LIMIT 1`,
		municipality)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, scanUser)
}

func scanUser(row pgx.CollectableRow) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Municipality,
		&user.DisplayName,
		&user.Phone,
		&user.MustResetPassword,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return &user, err
}
