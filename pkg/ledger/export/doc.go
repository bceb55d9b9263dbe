// Package export writes ledger records as JSON or CSV.
package export
