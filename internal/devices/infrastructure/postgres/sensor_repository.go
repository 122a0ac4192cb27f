package postgres

import (
	"context"
	"errors"
	"fmt"

	devices "device-insight/internal/devices/domain"
)

const defaultSensorsTable = "sensors"

// SensorRepository is a read-only Postgres implementation for sensors.
type SensorRepository struct {
	db    DBTX
	table string
}

// NewSensorRepository constructs a repository.
func NewSensorRepository(db DBTX, opts ...SensorOption) *SensorRepository {
	repo := &SensorRepository{db: db, table: defaultSensorsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// SensorOption configures the repository.
type SensorOption func(*SensorRepository)

// WithSensorTable overrides the default table name.
func WithSensorTable(table string) SensorOption {
	return func(repo *SensorRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const sensorColumns = `id, device_id, COALESCE(name, ''), COALESCE(type, 0), COALESCE(type_name, ''),
	COALESCE(vendor, ''), COALESCE(version, 0), COALESCE(maximum_range, 0), COALESCE(resolution, 0),
	COALESCE(power, 0), COALESCE(min_delay, 0), COALESCE(max_delay, 0), created_at`

func scanSensor(row scanner) (devices.Sensor, error) {
	var sensor devices.Sensor
	if err := row.Scan(
		&sensor.ID,
		&sensor.DeviceID,
		&sensor.Name,
		&sensor.Type,
		&sensor.TypeName,
		&sensor.Vendor,
		&sensor.Version,
		&sensor.MaximumRange,
		&sensor.Resolution,
		&sensor.Power,
		&sensor.MinDelay,
		&sensor.MaxDelay,
		&sensor.CreatedAt,
	); err != nil {
		return devices.Sensor{}, err
	}
	sensor.CreatedAt = sensor.CreatedAt.UTC()
	return sensor, nil
}

// ListByDevice loads the sensors of one device ordered by name.
func (r *SensorRepository) ListByDevice(ctx context.Context, deviceID string) ([]devices.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	if deviceID == "" {
		return nil, devices.ErrEmptyDeviceID
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE device_id = $1
ORDER BY name ASC, id ASC`, sensorColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []devices.Sensor{}
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sensor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByDevices loads sensors for several devices, keyed by device id.
func (r *SensorRepository) ListByDevices(ctx context.Context, deviceIDs []string) (map[string][]devices.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	result := make(map[string][]devices.Sensor, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return result, nil
	}

	args := make([]any, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		if id == "" {
			return nil, devices.ErrEmptyDeviceID
		}
		args = append(args, id)
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE device_id IN (%s)
ORDER BY device_id ASC, name ASC, id ASC`, sensorColumns, r.table, placeholders(1, len(args)))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		result[sensor.DeviceID] = append(result[sensor.DeviceID], sensor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountByDevice returns the number of sensor rows per device.
func (r *SensorRepository) CountByDevice(ctx context.Context) (map[string]int, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT device_id, COUNT(*)
FROM %s
GROUP BY device_id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		result[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListNames returns the name of every sensor row, ordered by name.
func (r *SensorRepository) ListNames(ctx context.Context) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT COALESCE(name, '')
FROM %s
ORDER BY name ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result = append(result, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
