package filtering

import "errors"

var (
	// ErrUnknownField is returned when criteria carry an unrecognized option.
	ErrUnknownField = errors.New("filtering: unknown field")
	// ErrInvalidSortKey is returned for an unsupported sort_by value.
	ErrInvalidSortKey = errors.New("filtering: invalid sort key")
	// ErrInvalidSortOrder is returned for a sort_order other than asc or desc.
	ErrInvalidSortOrder = errors.New("filtering: invalid sort order")
	// ErrInvalidRange is returned when a range minimum exceeds its maximum.
	ErrInvalidRange = errors.New("filtering: invalid range")
	// ErrInvalidNumber is returned when a numeric option does not parse.
	ErrInvalidNumber = errors.New("filtering: invalid number")
)
