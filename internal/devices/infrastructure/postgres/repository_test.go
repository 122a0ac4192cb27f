package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	devices "device-insight/internal/devices/domain"
)

var deviceCols = []string{
	"id", "device_id", "model", "manufacturer", "brand", "android_version", "sdk_version",
	"carrier_name", "operator_name", "cpu_abis", "cpu_cores", "total_memory_gb", "available_memory_gb",
	"total_storage_gb", "available_storage_gb", "created_at", "updated_at",
}

var sensorCols = []string{
	"id", "device_id", "name", "type", "type_name", "vendor", "version",
	"maximum_range", "resolution", "power", "min_delay", "max_delay", "created_at",
}

func TestDeviceRepositoryList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ts := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(deviceCols).
		AddRow(int64(2), "s24", "SM-S921N", "Samsung", "samsung", "14", int64(34), "SKT", "SKTelecom", "arm64-v8a,armeabi-v7a", int64(8), 12.0, 5.5, 512.0, 300.0, ts, ts).
		AddRow(int64(1), "g7", "LM-G710N", "LGE", "lge", "10", int64(29), "", "", "", int64(8), 4.0, 1.0, 64.0, 10.0, ts.Add(-time.Hour), ts)
	mock.ExpectQuery(regexp.QuoteMeta("FROM fleet_devices ORDER BY created_at DESC, id DESC")).WillReturnRows(rows)

	repo := NewDeviceRepository(db, WithDeviceTable("fleet_devices"))
	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(list))
	}
	if list[0].DeviceID != "s24" || list[0].SDKVersion != 34 || list[0].TotalMemoryGB != 12 {
		t.Fatalf("unexpected first device %+v", list[0])
	}
	if len(list[0].CPUABIs) != 2 || list[0].CPUABIs[1] != "armeabi-v7a" {
		t.Fatalf("unexpected abis %v", list[0].CPUABIs)
	}
	if list[1].CPUABIs == nil || len(list[1].CPUABIs) != 0 {
		t.Fatalf("expected empty abi list, got %v", list[1].CPUABIs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeviceRepositoryGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM devices WHERE device_id = $1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(deviceCols))

	repo := NewDeviceRepository(db)
	device, err := repo.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if device != nil {
		t.Fatalf("expected nil device, got %+v", device)
	}
	if _, err := repo.Get(context.Background(), ""); !errors.Is(err, devices.ErrEmptyDeviceID) {
		t.Fatalf("expected ErrEmptyDeviceID, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeviceRepositoryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM devices")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	n, err := NewDeviceRepository(db).Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
}

func TestSensorRepositoryListByDevices(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ts := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(sensorCols).
		AddRow(int64(1), "a", "BMI160 Accelerometer", int64(1), "android.sensor.accelerometer", "Bosch", int64(1), 78.4, 0.002, 0.18, int64(2500), int64(0), ts).
		AddRow(int64(3), "b", "LSM6DSO Gyroscope", int64(4), "android.sensor.gyroscope", "STMicro", int64(2), 34.9, 0.001, 0.55, int64(2500), int64(0), ts).
		AddRow(int64(2), "b", "TCS3701 Light", int64(5), "android.sensor.light", "ams", int64(1), 60000.0, 1.0, 0.75, int64(0), int64(0), ts)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE device_id IN ($1, $2)")).
		WithArgs("a", "b").
		WillReturnRows(rows)

	repo := NewSensorRepository(db)
	byDevice, err := repo.ListByDevices(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("list by devices: %v", err)
	}
	if len(byDevice["a"]) != 1 || len(byDevice["b"]) != 2 {
		t.Fatalf("unexpected grouping %+v", byDevice)
	}
	if byDevice["b"][0].Type != 4 || byDevice["b"][0].Vendor != "STMicro" {
		t.Fatalf("unexpected sensor %+v", byDevice["b"][0])
	}

	empty, err := repo.ListByDevices(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty map, got %v %v", empty, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSensorRepositoryCountByDevice(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT device_id, COUNT(*) FROM sensors GROUP BY device_id")).
		WillReturnRows(sqlmock.NewRows([]string{"device_id", "count"}).AddRow("a", int64(12)).AddRow("b", int64(30)))

	counts, err := NewSensorRepository(db).CountByDevice(context.Background())
	if err != nil {
		t.Fatalf("count by device: %v", err)
	}
	if counts["a"] != 12 || counts["b"] != 30 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSensorRepositoryListByDeviceEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sensors WHERE device_id = $1 ORDER BY name ASC")).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows(sensorCols))

	list, err := NewSensorRepository(db).ListByDevice(context.Background(), "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", list)
	}
}

func TestNilRepository(t *testing.T) {
	var repo *DeviceRepository
	if _, err := repo.List(context.Background()); err == nil {
		t.Fatalf("expected error for nil repository")
	}
	var sensors *SensorRepository
	if _, err := sensors.ListNames(context.Background()); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}
