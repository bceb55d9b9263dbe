package gateway

import "time"

// Rejection reasons reported to Metrics.
const (
	ReasonMalformed        = "malformed"
	ReasonUnsupportedType  = "unsupported_type"
	ReasonBusy             = "busy"
	ReasonUnauthorized     = "unauthorized"
	ReasonAdmission        = "admission"
	ReasonInvalidPayload   = "invalid_payload"
	ReasonInvalidProvider  = "invalid_provider"
	ReasonGenerationFailed = "generation_failed"
	ReasonPayloadTooLarge  = "payload_too_large"
)

// Metrics receives gateway events. *metrics.Collector satisfies it.
type Metrics interface {
	SessionOpened()
	SessionClosed(code int, lifetime time.Duration)
	RequestRejected(reason string)
}

type nopMetrics struct{}

func (nopMetrics) SessionOpened()                   {}
func (nopMetrics) SessionClosed(int, time.Duration) {}
func (nopMetrics) RequestRejected(string)           {}
