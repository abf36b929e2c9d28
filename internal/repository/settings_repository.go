package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository is a flat key/value store. It performs no validation.
type SettingsRepository interface {
	All(ctx context.Context) (map[string]string, error)
	SetAll(ctx context.Context, values map[string]string) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository builds the repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

const upsertSetting = `
    INSERT INTO settings (key, value) VALUES ($1,$2)
    ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

func (r *settingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}

// SetAll upserts the whole batch atomically. Empty values delete the key.
func (r *settingsRepository) SetAll(ctx context.Context, values map[string]string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for key, value := range values {
			var err error
			if value == "" {
				_, err = tx.Exec(ctx, `DELETE FROM settings WHERE key=$1`, key)
			} else {
				_, err = tx.Exec(ctx, upsertSetting, key, value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
