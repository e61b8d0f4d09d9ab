package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Format selects the query output rendering.
type Format string

const (
	FormatPlain Format = "plain"
	FormatCSV   Format = "csv"
	FormatTSV   Format = "tsv"
)

// ParseFormat validates a format name from configuration or flags.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatPlain:
		return FormatPlain, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatTSV:
		return FormatTSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Render writes the result in the requested format. Plain output is an
// aligned table with an upper-cased header; csv and tsv are machine
// readable.
func Render(w io.Writer, res *Result, f Format) error {
	switch f {
	case FormatPlain:
		return renderPlain(w, res)
	case FormatCSV:
		return renderSeparated(w, res, ',')
	case FormatTSV:
		return renderSeparated(w, res, '\t')
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

func renderPlain(w io.Writer, res *Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range res.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func renderSeparated(w io.Writer, res *Result, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
