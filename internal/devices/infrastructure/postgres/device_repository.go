package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	devices "device-insight/internal/devices/domain"
)

const defaultDevicesTable = "devices"

// DeviceRepository is a read-only Postgres implementation for devices.
type DeviceRepository struct {
	db    DBTX
	table string
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db DBTX, opts ...DeviceOption) *DeviceRepository {
	repo := &DeviceRepository{db: db, table: defaultDevicesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DeviceOption configures the repository.
type DeviceOption func(*DeviceRepository)

// WithDeviceTable overrides the default table name.
func WithDeviceTable(table string) DeviceOption {
	return func(repo *DeviceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const deviceColumns = `id, device_id, COALESCE(model, ''), COALESCE(manufacturer, ''), COALESCE(brand, ''),
	COALESCE(android_version, ''), COALESCE(sdk_version, 0), COALESCE(carrier_name, ''), COALESCE(operator_name, ''),
	COALESCE(array_to_string(cpu_abis, ','), ''), COALESCE(cpu_cores, 0),
	COALESCE(total_memory_gb, 0), COALESCE(available_memory_gb, 0),
	COALESCE(total_storage_gb, 0), COALESCE(available_storage_gb, 0),
	created_at, COALESCE(updated_at, created_at)`

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (devices.Device, error) {
	var device devices.Device
	var abis string
	if err := row.Scan(
		&device.ID,
		&device.DeviceID,
		&device.Model,
		&device.Manufacturer,
		&device.Brand,
		&device.AndroidVersion,
		&device.SDKVersion,
		&device.CarrierName,
		&device.OperatorName,
		&abis,
		&device.CPUCores,
		&device.TotalMemoryGB,
		&device.AvailableMemoryGB,
		&device.TotalStorageGB,
		&device.AvailableStorageGB,
		&device.CreatedAt,
		&device.UpdatedAt,
	); err != nil {
		return devices.Device{}, err
	}
	device.CPUABIs = splitList(abis)
	device.CreatedAt = device.CreatedAt.UTC()
	device.UpdatedAt = device.UpdatedAt.UTC()
	return device, nil
}

// Get loads a device by its device id. A missing device yields nil, nil.
func (r *DeviceRepository) Get(ctx context.Context, deviceID string) (*devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if deviceID == "" {
		return nil, devices.ErrEmptyDeviceID
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE device_id = $1
ORDER BY created_at DESC
LIMIT 1`, deviceColumns, r.table)

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// List loads every device, newest first.
func (r *DeviceRepository) List(ctx context.Context) ([]devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY created_at DESC, id DESC`, deviceColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []devices.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Count returns the number of device rows.
func (r *DeviceRepository) Count(ctx context.Context) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("device repo: nil db")
	}
	var n int
	if err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
