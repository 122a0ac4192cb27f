package tiering

import "errors"

// ErrInvalidTier is returned when a tier name is not recognized.
var ErrInvalidTier = errors.New("tiering: invalid tier")
