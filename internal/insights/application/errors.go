package application

import "errors"

var (
	// ErrNilService is returned when a method is called on a nil service.
	ErrNilService = errors.New("insights: nil service")
	// ErrInvalidPage is returned for a page number below 1 or an out of range page size.
	ErrInvalidPage = errors.New("insights: invalid page")
)
