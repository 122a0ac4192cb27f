package devices

import (
	"context"
	"time"
)

// Snapshot is a read-only view of the device fleet: every device, newest
// first, plus the number of sensors each device reported.
type Snapshot struct {
	Devices      []Device       `json:"devices"`
	SensorCounts map[string]int `json:"sensor_counts"`
	LoadedAt     time.Time      `json:"loaded_at"`
}

// SensorCount returns the sensor count for a device, 0 when unknown.
func (s *Snapshot) SensorCount(deviceID string) int {
	if s == nil || s.SensorCounts == nil {
		return 0
	}
	return s.SensorCounts[deviceID]
}

// Find returns the device with the given id.
func (s *Snapshot) Find(deviceID string) (Device, bool) {
	if s == nil {
		return Device{}, false
	}
	for _, device := range s.Devices {
		if device.DeviceID == deviceID {
			return device, true
		}
	}
	return Device{}, false
}

// SnapshotSource loads fleet snapshots.
type SnapshotSource interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Clock provides time for snapshot stamping.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Catalog builds snapshots straight from the repositories.
type Catalog struct {
	devices DeviceRepository
	sensors SensorRepository
	clock   Clock
}

// NewCatalog constructs a Catalog.
func NewCatalog(devices DeviceRepository, sensors SensorRepository, clock Clock) (*Catalog, error) {
	if devices == nil || sensors == nil {
		return nil, ErrNilRepository
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Catalog{devices: devices, sensors: sensors, clock: clock}, nil
}

// Load reads all devices and sensor counts.
func (c *Catalog) Load(ctx context.Context) (*Snapshot, error) {
	list, err := c.devices.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := c.sensors.CountByDevice(ctx)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return &Snapshot{Devices: list, SensorCounts: counts, LoadedAt: c.clock.Now()}, nil
}
