package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tianji-hq/oracle/pkg/cli"
	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/ledger"
	"tianji-hq/oracle/pkg/ledger/export"
	"tianji-hq/oracle/pkg/ledger/retention"
	"tianji-hq/oracle/pkg/ledger/storage"
)

const formatText = "text"

var ledgerFlags struct {
	user      string
	provider  string
	transport string
	status    string
	since     string
	until     string
	limit     int
	offset    int
	format    string
	pretty    bool
	output    string
	days      int
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and maintain the generation ledger",
	Long: `Inspect and maintain the generation ledger.

Every interpretation the gateway produces, streamed or buffered, is recorded
with its user, provider, outcome and timing. The ledger backend is taken from
the ledger section of the configuration file.

Subcommands:
  export  - Write ledger records as text, JSON or CSV
  prune   - Delete records older than the retention period`,
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger records",
	Long: `Export ledger records, newest first.

--since and --until accept an RFC3339 timestamp or a duration relative to
now (for example 24h).

Examples:
  # Show the latest generations
  oracle ledger export

  # Failed generations for one user in the last day, as JSON
  oracle ledger export --user alice --status error --since 24h --format json

  # Write a CSV file
  oracle ledger export --format csv --limit 10000 -o ledger.csv`,
	RunE: runLedgerExport,
}

var ledgerPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired ledger records",
	Long: `Delete ledger records older than the retention period.

The period defaults to ledger.retention_days from the configuration file.

Examples:
  # Apply the configured retention
  oracle ledger prune

  # Keep only the last week
  oracle ledger prune --days 7`,
	RunE: runLedgerPrune,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerExportCmd, ledgerPruneCmd)

	f := ledgerExportCmd.Flags()
	f.StringVar(&ledgerFlags.user, "user", "", "filter by user ID")
	f.StringVar(&ledgerFlags.provider, "provider", "", "filter by provider")
	f.StringVar(&ledgerFlags.transport, "transport", "", "filter by transport (websocket, http)")
	f.StringVar(&ledgerFlags.status, "status", "", "filter by status (success, fallback, error)")
	f.StringVar(&ledgerFlags.since, "since", "", "earliest start time (RFC3339 or duration)")
	f.StringVar(&ledgerFlags.until, "until", "", "latest start time (RFC3339 or duration)")
	f.IntVar(&ledgerFlags.limit, "limit", 100, "max results")
	f.IntVar(&ledgerFlags.offset, "offset", 0, "pagination offset")
	f.StringVar(&ledgerFlags.format, "format", formatText, "output format: text, json, csv")
	f.BoolVar(&ledgerFlags.pretty, "pretty", false, "indent JSON output")
	f.StringVarP(&ledgerFlags.output, "output", "o", "", "output file (default: stdout)")

	ledgerPruneCmd.Flags().IntVar(&ledgerFlags.days, "days", 0, "retention period in days (default: ledger.retention_days)")
}

// openLedger loads the configuration and opens its ledger backend.
func openLedger() (*config.Config, ledger.Store, error) {
	store, err := loadStore()
	if err != nil {
		return nil, nil, err
	}
	cfg := store.Get()
	if cfg.Ledger.Driver == storage.DriverMemory {
		return nil, nil, cli.NewConfigError("ledger.driver", "the memory ledger is not persisted and cannot be inspected")
	}
	ledgerStore, err := storage.Open(cfg.Ledger)
	if err != nil {
		return nil, nil, cli.NewCommandError("ledger", fmt.Errorf("failed to open ledger: %w", err))
	}
	return cfg, ledgerStore, nil
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	query, err := buildLedgerQuery(time.Now())
	if err != nil {
		return err
	}

	var exporter export.Exporter
	if ledgerFlags.format != formatText {
		exporter, err = export.New(ledgerFlags.format, ledgerFlags.pretty)
		if err != nil {
			return err
		}
	}

	_, ledgerStore, err := openLedger()
	if err != nil {
		return err
	}
	defer ledgerStore.Close()

	records, err := ledgerStore.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("ledger export", err)
	}

	out := cmd.OutOrStdout()
	if ledgerFlags.output != "" {
		file, err := os.Create(ledgerFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if exporter == nil {
		err = writeRecordTable(out, records)
	} else {
		err = exporter.Export(cmd.Context(), records, out)
	}
	if err != nil {
		return cli.NewCommandError("ledger export", err)
	}

	if ledgerFlags.output != "" {
		cli.Check(cmd.OutOrStdout(), "Exported %d records to %s", len(records), ledgerFlags.output)
	}
	return nil
}

func buildLedgerQuery(now time.Time) (*ledger.Query, error) {
	query := &ledger.Query{
		UserID:    ledgerFlags.user,
		Provider:  ledgerFlags.provider,
		Transport: ledgerFlags.transport,
		Status:    ledgerFlags.status,
		Limit:     ledgerFlags.limit,
		Offset:    ledgerFlags.offset,
	}
	if ledgerFlags.since != "" {
		t, err := parseTimeFlag(ledgerFlags.since, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		query.StartTime = &t
	}
	if ledgerFlags.until != "" {
		t, err := parseTimeFlag(ledgerFlags.until, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --until: %w", err)
		}
		query.EndTime = &t
	}
	if query.StartTime != nil && query.EndTime != nil && query.EndTime.Before(*query.StartTime) {
		return nil, fmt.Errorf("--until is before --since")
	}
	return query, nil
}

// parseTimeFlag accepts an RFC3339 timestamp or a duration back from now.
func parseTimeFlag(value string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("duration %q must not be negative", value)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither an RFC3339 time nor a duration", value)
	}
	return t, nil
}

func writeRecordTable(w io.Writer, records []*ledger.Record) error {
	tw := cli.NewTableWriter(w, "STARTED", "USER", "PROVIDER", "TRANSPORT", "STATUS", "CHUNKS", "BYTES", "DURATION")
	for _, r := range records {
		tw.Row(
			r.StartedAt.UTC().Format(time.RFC3339),
			r.UserID,
			r.Provider,
			r.Transport,
			r.Status,
			strconv.Itoa(r.Chunks),
			strconv.Itoa(r.Bytes),
			r.Duration.Round(time.Millisecond).String(),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "(no records)")
		return err
	}
	return nil
}

func runLedgerPrune(cmd *cobra.Command, args []string) error {
	if ledgerFlags.days < 0 {
		return fmt.Errorf("--days must not be negative")
	}

	cfg, ledgerStore, err := openLedger()
	if err != nil {
		return err
	}
	defer ledgerStore.Close()

	days := cfg.Ledger.RetentionDays
	if ledgerFlags.days > 0 {
		days = ledgerFlags.days
	}

	pruner := retention.NewPruner(ledgerStore, retention.Config{RetentionDays: days}, nil)
	out := cmd.OutOrStdout()
	if pruner.Cutoff().IsZero() {
		cli.Warn(out, "Retention is unlimited, nothing pruned")
		return nil
	}

	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("ledger prune", err)
	}
	cli.Check(out, "Pruned %d records started before %s", deleted, pruner.Cutoff().UTC().Format(time.RFC3339))
	return nil
}
