// Package proxy holds the request parsing, error mapping and response
// writing shared by the REST handlers.
//
// HandleError is the single place where domain errors become HTTP
// statuses. Messages match the ones the WebSocket transport sends, so a
// client sees the same text on either surface.
package proxy
