package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tianji-hq/oracle/pkg/ledger"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"   // modernc.org/sqlite, pure Go
	DriverSQLite3  = "sqlite3"  // github.com/mattn/go-sqlite3, cgo
	DriverPostgres = "postgres" // github.com/lib/pq
	DriverMemory   = "memory"
)

// ErrUnknownDriver is returned for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown ledger driver")

// SQLConfig configures a SQL-backed store.
type SQLConfig struct {
	// Driver is one of DriverSQLite, DriverSQLite3 or DriverPostgres.
	Driver string

	// DSN is a file path for the sqlite drivers, a connection string for
	// postgres.
	DSN string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// BusyTimeout applies to the sqlite drivers.
	// Default: 5s
	BusyTimeout time.Duration
}

// SQLStore implements ledger.Store on database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewSQLStore opens the database and creates the schema.
func NewSQLStore(cfg SQLConfig) (*SQLStore, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverSQLite3, DriverPostgres:
	default:
		return nil, ledger.NewStorageError(cfg.Driver, "open", fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver))
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, ledger.NewStorageError(cfg.Driver, "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLStore{
		db:     db,
		driver: cfg.Driver,
		logger: slog.Default().With("component", "ledger.storage", "driver", cfg.Driver),
	}
	if err := s.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("ledger storage initialized", "max_open_conns", cfg.MaxOpenConns)
	return s, nil
}

func (s *SQLStore) isSQLite() bool {
	return s.driver == DriverSQLite || s.driver == DriverSQLite3
}

func (s *SQLStore) initialize(cfg SQLConfig) error {
	ctx := context.Background()

	if s.isSQLite() {
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
		}
		for _, p := range pragmas {
			if _, err := s.db.ExecContext(ctx, p); err != nil {
				return ledger.NewStorageError(s.driver, "pragma", err)
			}
		}
	}

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return ledger.NewStorageError(s.driver, "create_schema", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(insertSchemaVersion), SchemaVersion, time.Now().UnixMilli()); err != nil {
		return ledger.NewStorageError(s.driver, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, getSchemaVersion).Scan(&version); err != nil {
		return ledger.NewStorageError(s.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return ledger.NewStorageError(s.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var (
		sb strings.Builder
		n  int
	)
	sb.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// Store writes one record.
func (s *SQLStore) Store(ctx context.Context, r *ledger.Record) error {
	query := `INSERT INTO generations (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		r.ID, r.RequestID, r.SessionID, r.UserID, r.Provider, r.ProviderType, r.Transport, r.Mode, r.Status,
		r.ErrorType, r.Error, r.Chunks, r.Bytes, r.OutputHash, r.PromptTokens, r.CompletionTokens,
		r.StartedAt.UnixMilli(), r.Duration.Milliseconds(), r.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return ledger.NewStorageError(s.driver, "store", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLStore) Query(ctx context.Context, q *ledger.Query) ([]*ledger.Record, error) {
	where, args := buildWhereClause(q)

	sqlQuery := "SELECT " + recordColumns + " FROM generations"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" ORDER BY started_at DESC, id LIMIT %d", limit)
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(sqlQuery), args...)
	if err != nil {
		return nil, ledger.NewStorageError(s.driver, "query", err)
	}
	defer rows.Close()

	records := []*ledger.Record{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, ledger.NewStorageError(s.driver, "scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError(s.driver, "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLStore) Count(ctx context.Context, q *ledger.Query) (int64, error) {
	where, args := buildWhereClause(q)
	sqlQuery := "SELECT COUNT(*) FROM generations"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, s.rebind(sqlQuery), args...).Scan(&count); err != nil {
		return 0, ledger.NewStorageError(s.driver, "count", err)
	}
	return count, nil
}

// DeleteBefore removes records started before cutoff.
func (s *SQLStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM generations WHERE started_at < ?"), cutoff.UnixMilli())
	if err != nil {
		return 0, ledger.NewStorageError(s.driver, "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, ledger.NewStorageError(s.driver, "delete", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ledger.NewStorageError(s.driver, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return ledger.NewStorageError(s.driver, "close", err)
	}
	s.logger.Info("ledger storage closed")
	return nil
}

// buildWhereClause returns the conditions (without WHERE) and their
// arguments, with ? placeholders.
func buildWhereClause(q *ledger.Query) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if q.StartTime != nil {
		add("started_at >= ?", q.StartTime.UnixMilli())
	}
	if q.EndTime != nil {
		add("started_at <= ?", q.EndTime.UnixMilli())
	}
	if q.UserID != "" {
		add("user_id = ?", q.UserID)
	}
	if q.Provider != "" {
		add("provider = ?", q.Provider)
	}
	if q.Transport != "" {
		add("transport = ?", q.Transport)
	}
	if q.Status != "" {
		add("status = ?", q.Status)
	}
	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*ledger.Record, error) {
	var r ledger.Record
	var startedMs, durationMs, recordedMs int64
	err := rows.Scan(
		&r.ID, &r.RequestID, &r.SessionID, &r.UserID, &r.Provider, &r.ProviderType, &r.Transport, &r.Mode, &r.Status,
		&r.ErrorType, &r.Error, &r.Chunks, &r.Bytes, &r.OutputHash, &r.PromptTokens, &r.CompletionTokens,
		&startedMs, &durationMs, &recordedMs,
	)
	if err != nil {
		return nil, err
	}
	r.StartedAt = time.UnixMilli(startedMs).UTC()
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.RecordedAt = time.UnixMilli(recordedMs).UTC()
	return &r, nil
}
