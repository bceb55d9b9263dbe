package export

import (
	"context"
	"encoding/json"
	"io"

	"tianji-hq/oracle/pkg/ledger"
)

// JSONExporter writes records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export implements Exporter. An empty slice is written as "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*ledger.Record, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []*ledger.Record{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return &ledger.ExportError{Format: FormatJSON, Count: len(records), Cause: err}
	}
	return nil
}
