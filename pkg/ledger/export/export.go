package export

import (
	"context"
	"fmt"
	"io"

	"tianji-hq/oracle/pkg/ledger"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Exporter writes ledger records to w.
type Exporter interface {
	Export(ctx context.Context, records []*ledger.Record, w io.Writer) error
}

// New returns the exporter for format.
func New(format string, pretty bool) (Exporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONExporter(pretty), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want %s or %s)", format, FormatJSON, FormatCSV)
	}
}
