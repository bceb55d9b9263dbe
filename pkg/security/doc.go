// Package security groups the gateway's trust boundaries.
//
// Subpackages:
//
//   - auth: bearer-token authorization for the stream and the HTTP API
//   - secrets: ${secret:name} resolution for credentials in the configuration
//   - tls: listener TLS with certificate hot reload
package security
