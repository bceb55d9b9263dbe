// Package storage provides ledger.Store backends.
//
// SQLStore runs on database/sql with three drivers: "sqlite" (pure Go,
// the default), "sqlite3" (cgo) and "postgres". The SQLite drivers open
// the database in WAL mode with a busy timeout. MemoryStore keeps records
// in a map and is selected with driver "memory".
package storage
