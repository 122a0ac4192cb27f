package comparison

import "errors"

var (
	// ErrTooManyDevices is returned when a selection exceeds MaxSelected.
	ErrTooManyDevices = errors.New("comparison: too many devices selected")
	// ErrEmptySelection is returned when a comparison has no devices.
	ErrEmptySelection = errors.New("comparison: no devices selected")
)
