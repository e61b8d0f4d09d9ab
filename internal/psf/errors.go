package psf

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotFound indicates a missing archive or payload source.
	ErrNotFound = errors.New("archive not found")

	// ErrAlreadyExists indicates a refusal to clobber an existing archive
	// without an explicit overwrite.
	ErrAlreadyExists = errors.New("archive already exists")

	// ErrMalformed indicates an unreadable container or a metadata record
	// missing a required field.
	ErrMalformed = errors.New("malformed archive")

	// ErrVersionIncompatible indicates an archive or submission that
	// requires a newer tool than the one running.
	ErrVersionIncompatible = errors.New("incompatible version")
)
