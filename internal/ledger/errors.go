package ledger

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrCorrupt indicates stored revisions that violate the append-only
	// invariant (non-contiguous or non-zero-based sequence numbers).
	ErrCorrupt = errors.New("corrupt revision ledger")

	// ErrUnknownComponent indicates a scorecard component that the course
	// definition does not define. This is a configuration error.
	ErrUnknownComponent = errors.New("component not in course definition")
)
