package course

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNotFound  = errors.New("course definition not found")
	ErrMalformed = errors.New("malformed course definition")
)
