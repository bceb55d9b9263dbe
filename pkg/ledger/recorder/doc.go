// Package recorder writes finished generations to the ledger.
//
// Recorder.Observe is registered as a providers.Observer. Each call builds
// a ledger.Record (a fresh UUID, the request or session ID from the
// context, a SHA-256 of the delivered text, token usage, and an error
// classification) and queues it. A single worker drains the queue into
// the store. Close drains what is queued before returning.
package recorder
