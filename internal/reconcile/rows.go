package reconcile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/pretor/internal/psf"
	"github.com/okian/pretor/pkg/metrics"
)

// Row is one grade entry from an external CSV export: the identity key it
// targets plus the already-weighted contribution for one component. The
// component name is the assignment field.
type Row struct {
	Key          psf.Key
	Component    string
	Contribution float64
	Line         int
}

// requiredColumns must all appear in the header, in any order and mixed with
// columns we ignore.
var requiredColumns = []string{"semester", "assignment", "section", "course", "group", "override"}

type readOptions struct {
	comma rune
}

// ReadOption applies a configuration option to ReadRows.
type ReadOption func(*readOptions)

// WithTab reads tab-separated input instead of comma-separated.
func WithTab() ReadOption {
	return func(o *readOptions) {
		o.comma = '\t'
	}
}

// ReadRows parses grade rows. A header row is mandatory; missing required
// columns and unparsable override values are configuration defects, since
// they mean the export and the import disagree about the format.
func ReadRows(r io.Reader, opts ...ReadOption) ([]Row, error) {
	o := readOptions{comma: ','}
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(r)
	cr.Comma = o.comma
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable header: %v", ErrConfiguration, err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrConfiguration, name)
		}
	}

	var rows []Row
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrConfiguration, line, err)
		}

		override, err := strconv.ParseFloat(record[idx["override"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: override %q is not a number",
				ErrConfiguration, line, record[idx["override"]])
		}

		assignment := record[idx["assignment"]]
		rows = append(rows, Row{
			Key: psf.Key{
				Semester:   record[idx["semester"]],
				Course:     record[idx["course"]],
				Section:    record[idx["section"]],
				Group:      record[idx["group"]],
				Assignment: assignment,
			},
			Component:    assignment,
			Contribution: override,
			Line:         line,
		})
	}

	metrics.RecordRowsRead(len(rows))
	return rows, nil
}
