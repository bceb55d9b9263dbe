package wire

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// acceptGUID is the fixed GUID from RFC 6455 section 1.3.
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// AcceptKey derives the Sec-WebSocket-Accept value for a client key.
func AcceptKey(clientKey string) string {
	sum := sha1.Sum([]byte(clientKey + acceptGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// RejectReason classifies a failed upgrade.
type RejectReason int

const (
	// RejectURLTooLong is answered with a raw 414.
	RejectURLTooLong RejectReason = iota + 1

	// RejectPath terminates without a response.
	RejectPath

	// RejectOrigin is answered with a raw 403.
	RejectOrigin

	// RejectUpgrade terminates without a response. It covers a missing or
	// wrong Upgrade header and a missing Sec-WebSocket-Key.
	RejectUpgrade
)

// String returns a short label suitable for logs and metrics.
func (r RejectReason) String() string {
	switch r {
	case RejectURLTooLong:
		return "url_too_long"
	case RejectPath:
		return "path"
	case RejectOrigin:
		return "origin"
	case RejectUpgrade:
		return "upgrade"
	default:
		return "unknown"
	}
}

// RejectError describes why an upgrade was refused.
type RejectError struct {
	Reason RejectReason
	Detail string
}

// Error implements the error interface.
func (e *RejectError) Error() string {
	return fmt.Sprintf("websocket upgrade rejected (%s): %s", e.Reason, e.Detail)
}

// StatusCode returns the raw HTTP status written before terminating, or 0
// when the connection is closed without a response.
func (e *RejectError) StatusCode() int {
	switch e.Reason {
	case RejectURLTooLong:
		return http.StatusRequestURITooLong
	case RejectOrigin:
		return http.StatusForbidden
	default:
		return 0
	}
}

// NegotiatorConfig configures a Negotiator.
type NegotiatorConfig struct {
	// Path is the only route upgrades are accepted on.
	Path string

	// MaxURLLength bounds len(RequestURI). Zero disables the check.
	MaxURLLength int

	// AllowedOrigins is the Origin allow-list. Requests without an Origin
	// header skip the check.
	AllowedOrigins []string
}

// Negotiator validates upgrade requests. The Origin allow-list can be
// swapped at runtime with SetAllowedOrigins.
type Negotiator struct {
	path         string
	maxURLLength int
	origins      atomic.Pointer[map[string]struct{}]
}

// NewNegotiator creates a negotiator from cfg.
func NewNegotiator(cfg NegotiatorConfig) *Negotiator {
	n := &Negotiator{
		path:         cfg.Path,
		maxURLLength: cfg.MaxURLLength,
	}
	n.SetAllowedOrigins(cfg.AllowedOrigins)
	return n
}

// SetAllowedOrigins replaces the Origin allow-list.
func (n *Negotiator) SetAllowedOrigins(origins []string) {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	n.origins.Store(&set)
}

// Path returns the configured upgrade route.
func (n *Negotiator) Path() string {
	return n.path
}

// Validate checks r in order: URL length, path, Origin, then the Upgrade
// and Sec-WebSocket-Key headers. It returns a *RejectError on failure.
func (n *Negotiator) Validate(r *http.Request) error {
	uri := r.RequestURI
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	if n.maxURLLength > 0 && len(uri) > n.maxURLLength {
		return &RejectError{Reason: RejectURLTooLong, Detail: fmt.Sprintf("url length %d exceeds %d", len(uri), n.maxURLLength)}
	}

	if r.URL.Path != n.path {
		return &RejectError{Reason: RejectPath, Detail: fmt.Sprintf("path %q", r.URL.Path)}
	}

	if origin := r.Header.Get("Origin"); origin != "" {
		set := *n.origins.Load()
		if _, ok := set[strings.TrimRight(strings.ToLower(origin), "/")]; !ok {
			return &RejectError{Reason: RejectOrigin, Detail: fmt.Sprintf("origin %q not allowed", origin)}
		}
	}

	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return &RejectError{Reason: RejectUpgrade, Detail: "missing or invalid Upgrade header"}
	}
	if r.Header.Get("Sec-WebSocket-Key") == "" {
		return &RejectError{Reason: RejectUpgrade, Detail: "missing Sec-WebSocket-Key"}
	}

	return nil
}

// WriteReject writes the raw status line for err, if its reason has one.
// Reasons without a status write nothing.
func WriteReject(w io.Writer, err *RejectError) error {
	code := err.StatusCode()
	if code == 0 {
		return nil
	}
	_, werr := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", code, http.StatusText(code))
	return werr
}

// WriteAccept writes the 101 Switching Protocols response for clientKey.
func WriteAccept(w io.Writer, clientKey string) error {
	_, err := io.WriteString(w, "HTTP/1.1 101 Switching Protocols\r\n"+
		"Upgrade: websocket\r\n"+
		"Connection: Upgrade\r\n"+
		"Sec-WebSocket-Accept: "+AcceptKey(clientKey)+"\r\n\r\n")
	return err
}
