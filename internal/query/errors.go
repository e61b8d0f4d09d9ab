package query

import (
	"errors"
)

var (
	// ErrInvalidQuery indicates the SQL itself failed to parse or run.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownFormat indicates an unsupported output format name.
	ErrUnknownFormat = errors.New("unknown output format")
)
