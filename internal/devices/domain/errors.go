package devices

import "errors"

var (
	// ErrEmptyDeviceID is returned when a record has no device id.
	ErrEmptyDeviceID = errors.New("devices: empty device id")
	// ErrDeviceNotFound is returned when a device cannot be found.
	ErrDeviceNotFound = errors.New("devices: not found")
	// ErrNilRepository is returned when a catalog is built without repositories.
	ErrNilRepository = errors.New("devices: nil repository")
)
