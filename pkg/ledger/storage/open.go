package storage

import (
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/ledger"
)

// Open creates the store selected by the ledger config section.
func Open(cfg config.LedgerConfig) (ledger.Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, DriverSQLite3, DriverPostgres:
		return NewSQLStore(SQLConfig{
			Driver:       cfg.Driver,
			DSN:          cfg.DSN,
			MaxOpenConns: cfg.MaxOpenConns,
			BusyTimeout:  cfg.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}
}
