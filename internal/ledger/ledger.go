// Package ledger implements the append-only revision history attached to a
// submission archive and the scorecard derived from it.
//
// A Ledger is a value: Append returns a new Ledger and never mutates the
// receiver's revisions, so callers can hold snapshots safely. Sequence
// numbers are contiguous and start at 0.
package ledger

import (
	"fmt"
	"time"
)

// Revision is one immutable, sequence-numbered entry in the history.
// Contributions map component keys to their weighted score contribution.
// A revision with no contributions records a metadata-only mutation.
type Revision struct {
	Seq           int
	Timestamp     time.Time
	Contributions map[string]float64
}

// Ledger is the ordered revision history of one archive.
type Ledger struct {
	revisions []Revision
}

// FromRevisions reconstructs a ledger from stored revisions, validating the
// append-only invariant: sequence numbers strictly increasing and contiguous
// from 0.
func FromRevisions(revs []Revision) (Ledger, error) {
	for i, rev := range revs {
		if rev.Seq != i {
			return Ledger{}, fmt.Errorf("%w: revision at position %d has sequence %d", ErrCorrupt, i, rev.Seq)
		}
	}
	out := make([]Revision, len(revs))
	for i, rev := range revs {
		out[i] = Revision{
			Seq:           rev.Seq,
			Timestamp:     rev.Timestamp,
			Contributions: cloneContributions(rev.Contributions),
		}
	}
	return Ledger{revisions: out}, nil
}

// Append returns a new ledger with one more revision carrying the given
// contributions. The receiver is left untouched.
func (l Ledger) Append(contributions map[string]float64, now time.Time) Ledger {
	revs := make([]Revision, len(l.revisions)+1)
	copy(revs, l.revisions)
	revs[len(l.revisions)] = Revision{
		Seq:           len(l.revisions),
		Timestamp:     now,
		Contributions: cloneContributions(contributions),
	}
	return Ledger{revisions: revs}
}

// Len returns the number of revisions.
func (l Ledger) Len() int {
	return len(l.revisions)
}

// Revisions returns a copy of the history in sequence order.
func (l Ledger) Revisions() []Revision {
	out := make([]Revision, len(l.revisions))
	for i, rev := range l.revisions {
		out[i] = Revision{
			Seq:           rev.Seq,
			Timestamp:     rev.Timestamp,
			Contributions: cloneContributions(rev.Contributions),
		}
	}
	return out
}

// Scorecard folds the history into the current per-component contributions.
// For a component touched by several revisions, the revision with the higher
// sequence number wins.
func (l Ledger) Scorecard() Scorecard {
	sc := make(Scorecard)
	for _, rev := range l.revisions {
		for component, value := range rev.Contributions {
			sc[component] = value
		}
	}
	return sc
}

// Graded reports whether any revision carried a score contribution.
func (l Ledger) Graded() bool {
	return len(l.Scorecard()) > 0
}

func cloneContributions(in map[string]float64) map[string]float64 {
	if in == nil {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
