package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"tianji-hq/oracle/pkg/ledger"
)

var header = []string{
	"id", "request_id", "session_id", "user_id",
	"provider", "provider_type", "transport", "mode",
	"status", "error_type", "error",
	"chunks", "bytes", "output_hash",
	"prompt_tokens", "completion_tokens",
	"started_at", "duration_ms", "recorded_at",
}

// CSVExporter writes one row per record.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export implements Exporter.
func (e *CSVExporter) Export(ctx context.Context, records []*ledger.Record, w io.Writer) error {
	cw := csv.NewWriter(w)
	fail := func(err error) error {
		return &ledger.ExportError{Format: FormatCSV, Count: len(records), Cause: err}
	}

	if e.IncludeHeader {
		if err := cw.Write(header); err != nil {
			return fail(err)
		}
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(row(r)); err != nil {
			return fail(err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fail(err)
	}
	return nil
}

func row(r *ledger.Record) []string {
	return []string{
		r.ID, r.RequestID, r.SessionID, r.UserID,
		r.Provider, r.ProviderType, r.Transport, r.Mode,
		r.Status, r.ErrorType, r.Error,
		strconv.Itoa(r.Chunks), strconv.Itoa(r.Bytes), r.OutputHash,
		strconv.Itoa(r.PromptTokens), strconv.Itoa(r.CompletionTokens),
		formatTime(r.StartedAt), strconv.FormatInt(r.Duration.Milliseconds(), 10), formatTime(r.RecordedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
