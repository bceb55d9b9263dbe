// Package retention prunes old generation records.
//
// A Pruner deletes records whose start time is older than the configured
// number of days. A Scheduler runs the pruner on a robfig/cron schedule
// for the lifetime of the serve command; `oracle ledger prune` runs it
// once.
package retention
