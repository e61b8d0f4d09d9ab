package ledger

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/okian/pretor/internal/course"
)

// Scorecard is the current mapping from component key to its weighted score
// contribution, in 0..1 of the overall course grade.
//
// Contributions are stored already weighted: a contribution of 0.1 is worth
// ten percent of the course regardless of the component's configured weight.
// The course definition's weight is applied by whoever produces the
// contribution (see Weighted) and is consulted here only to validate that
// the component exists.
type Scorecard map[string]float64

// Option configures scorecard evaluation.
type Option func(*evalOptions)

type evalOptions struct {
	tolerant bool
}

// Tolerant makes Overall skip components absent from the course definition
// instead of failing. Intended for embedding callers that aggregate across
// partially defined courses; the CLIs never use it.
func Tolerant() Option {
	return func(o *evalOptions) {
		o.tolerant = true
	}
}

// Weighted converts a raw component score in 0..1 into its weighted
// contribution under the given component weight.
func Weighted(raw, weight float64) float64 {
	return raw * weight
}

// Overall sums the current contributions into the overall score in 0..1.
// A component missing from the course definition is a configuration error
// unless Tolerant() was requested.
func Overall(sc Scorecard, c *course.Course, opts ...Option) (float64, error) {
	var eo evalOptions
	for _, opt := range opts {
		opt(&eo)
	}

	var total float64
	for component, value := range sc {
		if _, ok := c.Component(component); !ok {
			if eo.tolerant {
				continue
			}
			return 0, fmt.Errorf("%w: %q not defined for course %q", ErrUnknownComponent, component, c.Name)
		}
		total += value
	}
	return total, nil
}

// FormatScorecard renders a human-readable report: one line per component in
// deterministic (key) order, then the overall score as a percentage with two
// decimal digits.
func FormatScorecard(sc Scorecard, c *course.Course) (string, error) {
	overall, err := Overall(sc, c)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(sc))
	for component := range sc {
		keys = append(keys, component)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "SCORECARD FOR %s\n\n", c.Name)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tWEIGHT\tCONTRIBUTION")
	for _, key := range keys {
		comp, _ := c.Component(key)
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f%%\n", comp.Name, comp.Weight, sc[key]*100)
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}

	fmt.Fprintf(&b, "\nOVERALL SCORE: %.2f%%\n", overall*100)
	return b.String(), nil
}
