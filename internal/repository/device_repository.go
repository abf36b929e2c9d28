package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// DeviceRepository reads the device inventory. Only the seed import writes it.
type DeviceRepository interface {
	GetBySerial(ctx context.Context, serial string) (*domain.Device, error)
	ListByMunicipality(ctx context.Context, municipality string) ([]domain.Device, error)
	ListMunicipalities(ctx context.Context) ([]string, error)
	ReplaceAll(ctx context.Context, devices []domain.Device) (int64, error)
}

type deviceRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceRepository builds the repository.
func NewDeviceRepository(pool *pgxpool.Pool) DeviceRepository {
	return &deviceRepository{pool: pool}
}

const deviceColumns = `id, municipality, COALESCE(imei1, ''), imei2, brand, model, capacity, serial_number,
    delivered_on, usage_site, condition, asset_tag`

func (r *deviceRepository) GetBySerial(ctx context.Context, serial string) (*domain.Device, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE imei1=$1`, serial)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, scanDevice)
}

func (r *deviceRepository) ListByMunicipality(ctx context.Context, municipality string) ([]domain.Device, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE municipality=$1 ORDER BY brand, model, imei1`, municipality)
	if err != nil {
		return nil, err
	}
	devices, err := pgx.CollectRows(rows, scanDevice)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Device, 0, len(devices))
	for _, d := range devices {
		result = append(result, *d)
	}
	return result, nil
}

func (r *deviceRepository) ListMunicipalities(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT municipality FROM devices ORDER BY municipality`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ReplaceAll swaps the whole inventory for devices in one transaction.
func (r *deviceRepository) ReplaceAll(ctx context.Context, devices []domain.Device) (int64, error) {
	var copied int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM devices`); err != nil {
			return err
		}
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"devices"},
			[]string{"municipality", "imei1", "imei2", "brand", "model", "capacity", "serial_number",
				"delivered_on", "usage_site", "condition", "asset_tag"},
			pgx.CopyFromSlice(len(devices), func(i int) ([]any, error) {
				d := devices[i]
				var imei1 *string
				if d.IMEI1 != "" {
					imei1 = &d.IMEI1
				}
				return []any{d.Municipality, imei1, d.IMEI2, d.Brand, d.Model, d.Capacity, d.SerialNumber,
					d.DeliveredOn, d.UsageSite, d.Condition, d.AssetTag}, nil
			}),
		)
		copied = n
		return mapWriteError(err)
	})
	return copied, err
}

func scanDevice(row pgx.CollectableRow) (*domain.Device, error) {
	var d domain.Device
	err := row.Scan(&d.ID, &d.Municipality, &d.IMEI1, &d.IMEI2, &d.Brand, &d.Model, &d.Capacity,
		&d.SerialNumber, &d.DeliveredOn, &d.UsageSite, &d.Condition, &d.AssetTag)
	return &d, err
}
