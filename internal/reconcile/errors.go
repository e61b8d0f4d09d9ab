package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/pretor/internal/psf"
)

var (
	// ErrUnmatched indicates a grade row whose identity key matches no
	// candidate archive.
	ErrUnmatched = errors.New("row matches no archive")

	// ErrAmbiguous indicates an identity key shared by more than one
	// candidate archive. Ambiguity always fails the whole batch.
	ErrAmbiguous = errors.New("row matches multiple archives")

	// ErrConfiguration indicates a defect in the batch inputs themselves:
	// a missing course definition, an unknown component, a bad column
	// mapping, or an archive that cannot yield an identity key.
	ErrConfiguration = errors.New("batch configuration defect")
)

// Defect describes one offending row or archive within a rejected batch.
type Defect struct {
	Key    psf.Key
	Line   int
	Detail string
}

func (d Defect) String() string {
	var b strings.Builder
	if d.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", d.Line)
	}
	if d.Key != (psf.Key{}) {
		b.WriteString(d.Key.String())
	}
	if d.Detail != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(d.Detail)
	}
	return b.String()
}

// BatchError is the full account of why a batch was rejected. Nothing was
// written: the engine only returns it from the plan phase.
type BatchError struct {
	Unmatched []Defect
	Ambiguous []Defect
	Config    []Defect
}

func (e *BatchError) empty() bool {
	return len(e.Unmatched) == 0 && len(e.Ambiguous) == 0 && len(e.Config) == 0
}

// reason labels the dominant failure class for metrics.
func (e *BatchError) reason() string {
	switch {
	case len(e.Ambiguous) > 0:
		return "ambiguous"
	case len(e.Unmatched) > 0:
		return "unmatched"
	default:
		return "configuration"
	}
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "batch rejected: %d unmatched, %d ambiguous, %d configuration defects",
		len(e.Unmatched), len(e.Ambiguous), len(e.Config))
	appendClass := func(label string, ds []Defect) {
		for _, d := range ds {
			fmt.Fprintf(&b, "\n  %s: %s", label, d)
		}
	}
	appendClass("unmatched", e.Unmatched)
	appendClass("ambiguous", e.Ambiguous)
	appendClass("configuration", e.Config)
	return b.String()
}

// Is lets callers test a BatchError against the package sentinels.
func (e *BatchError) Is(target error) bool {
	switch target {
	case ErrUnmatched:
		return len(e.Unmatched) > 0
	case ErrAmbiguous:
		return len(e.Ambiguous) > 0
	case ErrConfiguration:
		return len(e.Config) > 0
	}
	return false
}
