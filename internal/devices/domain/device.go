package devices

import (
	"context"
	"time"
)

// Device is a hardware/software profile snapshot reported by a handset.
// Numeric fields left at zero are treated as absent.
type Device struct {
	ID                 int64     `json:"id"`
	DeviceID           string    `json:"device_id"`
	Model              string    `json:"model"`
	Manufacturer       string    `json:"manufacturer"`
	Brand              string    `json:"brand"`
	AndroidVersion     string    `json:"android_version"`
	SDKVersion         int       `json:"sdk_version"`
	CarrierName        string    `json:"carrier_name,omitempty"`
	OperatorName       string    `json:"operator_name,omitempty"`
	CPUABIs            []string  `json:"cpu_abis"`
	CPUCores           int       `json:"cpu_cores"`
	TotalMemoryGB      float64   `json:"total_memory_gb"`
	AvailableMemoryGB  float64   `json:"available_memory_gb"`
	TotalStorageGB     float64   `json:"total_storage_gb"`
	AvailableStorageGB float64   `json:"available_storage_gb"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate checks the identifying key is present.
func (d Device) Validate() error {
	if d.DeviceID == "" {
		return ErrEmptyDeviceID
	}
	return nil
}

// Sensor is one hardware sensor reported by a device. Type is the
// vendor-defined numeric capability code and is the cross-device identity.
type Sensor struct {
	ID           int64     `json:"id"`
	DeviceID     string    `json:"device_id"`
	Name         string    `json:"name"`
	Type         int       `json:"type"`
	TypeName     string    `json:"type_name"`
	Vendor       string    `json:"vendor"`
	Version      int       `json:"version"`
	MaximumRange float64   `json:"maximum_range"`
	Resolution   float64   `json:"resolution"`
	Power        float64   `json:"power"`
	MinDelay     int       `json:"min_delay"`
	MaxDelay     int       `json:"max_delay"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks the owning device key is present.
func (s Sensor) Validate() error {
	if s.DeviceID == "" {
		return ErrEmptyDeviceID
	}
	return nil
}

// DeviceRepository reads device records.
type DeviceRepository interface {
	Get(ctx context.Context, deviceID string) (*Device, error)
	List(ctx context.Context) ([]Device, error)
}

// SensorRepository reads sensor records.
type SensorRepository interface {
	ListByDevice(ctx context.Context, deviceID string) ([]Sensor, error)
	ListByDevices(ctx context.Context, deviceIDs []string) (map[string][]Sensor, error)
	CountByDevice(ctx context.Context) (map[string]int, error)
	ListNames(ctx context.Context) ([]string, error)
}
