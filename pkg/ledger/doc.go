// Package ledger records every interpretation the gateway generates.
//
// A Record is written once per generation, whether it was streamed over
// the WebSocket transport or answered over HTTP. It captures who asked,
// which provider answered, how it ended, and a SHA-256 digest of the text
// that was delivered. The text itself is not stored.
//
// # Subpackages
//
//   - storage: SQL (sqlite, sqlite3, postgres) and in-memory backends
//   - recorder: asynchronous writer fed by the provider adapter's observer
//   - retention: age-based pruning on a cron schedule
//   - export: JSON and CSV output for the CLI
//
// # Usage
//
//	store, err := storage.Open(cfg.Ledger)
//	if err != nil {
//		return err
//	}
//	rec := recorder.New(store, recorder.Config{})
//	defer rec.Close()
//
//	generator := providers.NewGenerator(manager, providers.GeneratorOptions{
//		Observers: []providers.Observer{rec.Observe},
//	})
package ledger
