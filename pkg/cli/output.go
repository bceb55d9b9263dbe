package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Check prints a completed step as "✓ message".
func Check(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "✓ "+format+"\n", args...)
}

// Warn prints a non-fatal problem as "! message".
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "! "+format+"\n", args...)
}

// TableWriter prints aligned columns.
type TableWriter struct {
	tw      *tabwriter.Writer
	columns int
	err     error
}

// NewTableWriter writes headers and returns a writer for the rows beneath
// them.
func NewTableWriter(w io.Writer, headers ...string) *TableWriter {
	t := &TableWriter{
		tw:      tabwriter.NewWriter(w, 0, 4, 2, ' ', 0),
		columns: len(headers),
	}
	t.Row(headers...)
	return t
}

// Row writes one row. Missing cells are left blank and extra cells are
// dropped.
func (t *TableWriter) Row(cells ...string) {
	if t.err != nil {
		return
	}
	for i := 0; i < t.columns; i++ {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		sep := "\t"
		if i == t.columns-1 {
			sep = "\n"
		}
		if _, err := io.WriteString(t.tw, cell+sep); err != nil {
			t.err = err
			return
		}
	}
}

// Flush writes buffered rows and returns the first write error.
func (t *TableWriter) Flush() error {
	if t.err != nil {
		return t.err
	}
	return t.tw.Flush()
}
