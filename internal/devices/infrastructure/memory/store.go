package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	devices "device-insight/internal/devices/domain"
)

// Store is an in-memory device and sensor repository for demo/testing.
// It implements both devices.DeviceRepository and devices.SensorRepository.
type Store struct {
	mu      sync.RWMutex
	devices []devices.Device
	sensors map[string][]devices.Sensor
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{sensors: make(map[string][]devices.Sensor)}
}

// Dataset is the on-disk form of a store.
type Dataset struct {
	Devices []devices.Device `json:"devices"`
	Sensors []devices.Sensor `json:"sensors"`
}

// Decode reads a JSON dataset into a new store.
func Decode(r io.Reader) (*Store, error) {
	var data Dataset
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("memory store: decode dataset: %w", err)
	}
	store := NewStore()
	for _, device := range data.Devices {
		if err := store.AddDevice(device); err != nil {
			return nil, err
		}
	}
	for _, sensor := range data.Sensors {
		if err := store.AddSensor(sensor); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// AddDevice stores a device, replacing one with the same device id.
func (s *Store) AddDevice(device devices.Device) error {
	if err := device.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.devices {
		if s.devices[i].DeviceID == device.DeviceID {
			s.devices[i] = device
			return nil
		}
	}
	s.devices = append(s.devices, device)
	return nil
}

// AddSensor appends a sensor to its device.
func (s *Store) AddSensor(sensor devices.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensors[sensor.DeviceID] = append(s.sensors[sensor.DeviceID], sensor)
	return nil
}

// Get loads a device by id. A missing device yields nil, nil.
func (s *Store) Get(ctx context.Context, deviceID string) (*devices.Device, error) {
	_ = ctx
	if deviceID == "" {
		return nil, devices.ErrEmptyDeviceID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, device := range s.devices {
		if device.DeviceID == deviceID {
			d := device
			return &d, nil
		}
	}
	return nil, nil
}

// List returns every device, newest first.
func (s *Store) List(ctx context.Context) ([]devices.Device, error) {
	_ = ctx
	s.mu.RLock()
	out := append([]devices.Device(nil), s.devices...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Count returns the number of stored devices.
func (s *Store) Count(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices), nil
}

// ListByDevice returns the sensors of one device ordered by name.
func (s *Store) ListByDevice(ctx context.Context, deviceID string) ([]devices.Sensor, error) {
	_ = ctx
	if deviceID == "" {
		return nil, devices.ErrEmptyDeviceID
	}
	s.mu.RLock()
	out := append([]devices.Sensor{}, s.sensors[deviceID]...)
	s.mu.RUnlock()
	sortByName(out)
	return out, nil
}

// ListByDevices returns sensors for several devices keyed by device id.
func (s *Store) ListByDevices(ctx context.Context, deviceIDs []string) (map[string][]devices.Sensor, error) {
	out := make(map[string][]devices.Sensor, len(deviceIDs))
	for _, id := range deviceIDs {
		list, err := s.ListByDevice(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			out[id] = list
		}
	}
	return out, nil
}

// CountByDevice returns the number of sensors per device.
func (s *Store) CountByDevice(ctx context.Context) (map[string]int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.sensors))
	for id, list := range s.sensors {
		out[id] = len(list)
	}
	return out, nil
}

// ListNames returns the name of every sensor, ordered by name.
func (s *Store) ListNames(ctx context.Context) ([]string, error) {
	_ = ctx
	s.mu.RLock()
	var out []string
	for _, list := range s.sensors {
		for _, sensor := range list {
			out = append(out, sensor.Name)
		}
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func sortByName(list []devices.Sensor) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}
