package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, retry logic for buffered requests, and
// request outcome tracking.
//
// Two clients share one transport: buffered requests use a client bounded by
// the configured timeout, streamed requests use a client with no timeout so
// a long generation is never cut off mid-stream.
//
// Concrete adapters (OpenAI, Anthropic) embed this struct.
type HTTPProvider struct {
	config ProviderConfig

	// client serves buffered requests and carries config.Timeout
	client *http.Client

	// streamClient serves streamed requests and has no timeout
	streamClient *http.Client

	health   ProviderHealth
	healthMu sync.RWMutex

	// backoff returns the delay before retry attempt n (n >= 1)
	backoff func(attempt int) time.Duration
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config:       config,
		client:       &http.Client{Transport: transport, Timeout: config.Timeout},
		streamClient: &http.Client{Transport: transport},
		health: ProviderHealth{
			IsHealthy:             true, // Start optimistic
			LastSuccessfulRequest: time.Now(),
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
		},
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetType returns the provider's type.
func (p *HTTPProvider) GetType() string {
	return p.config.Type
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// IsHealthy returns the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns request outcome counters.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// SetBackoff overrides the retry delay function. Used by tests.
func (p *HTTPProvider) SetBackoff(fn func(attempt int) time.Duration) {
	p.backoff = fn
}

// record updates outcome counters after a request.
func (p *HTTPProvider) record(success bool, err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.TotalRequests++
	if success {
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = time.Now()
		return
	}

	p.health.FailedRequests++
	p.health.ConsecutiveFailures++
	p.health.LastError = err

	// Mark unhealthy after 3 consecutive failures
	if p.health.ConsecutiveFailures >= 3 && p.health.IsHealthy {
		p.health.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", p.config.Name,
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// DoRequest performs a buffered HTTP request bounded by the configured
// timeout. With MaxRetries above zero, network errors and 5xx responses are
// retried with exponential backoff; 400, 401, 403 and 429 are returned
// immediately. With MaxRetries zero the request is attempted once.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.backoff(attempt)
			slog.Debug("retrying request",
				"provider", p.config.Name,
				"attempt", attempt,
				"max_retries", p.config.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, p.timeoutError(ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := p.send(ctx, p.client, method, url, body, headers)
		if err != nil {
			lastErr = err
			p.record(false, err)

			if ctx.Err() != nil || isTimeout(err) {
				return nil, p.timeoutError(err)
			}

			if attempt < p.config.MaxRetries {
				slog.Warn("request failed, will retry",
					"provider", p.config.Name,
					"attempt", attempt+1,
					"error", err,
				)
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.record(true, nil)
			return resp, nil
		}

		statusErr := p.statusError(resp)
		p.record(false, statusErr)

		var perr *ProviderError
		if !errors.As(statusErr, &perr) || perr.StatusCode < 500 {
			return nil, statusErr
		}

		lastErr = statusErr
		if attempt < p.config.MaxRetries {
			slog.Warn("request returned error status, will retry",
				"provider", p.config.Name,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return nil, lastErr
}

// DoStreamRequest opens a streamed request. It is attempted once and is not
// bounded by the configured timeout; only ctx can end it early. The caller
// owns the returned body.
func (p *HTTPProvider) DoStreamRequest(ctx context.Context, url string, body []byte, headers map[string]string) (*http.Response, error) {
	resp, err := p.send(ctx, p.streamClient, http.MethodPost, url, body, headers)
	if err != nil {
		p.record(false, err)
		if ctx.Err() != nil {
			return nil, &StreamError{Provider: p.config.Name, Message: "stream request cancelled", Cause: ctx.Err()}
		}
		return nil, &StreamError{Provider: p.config.Name, Message: "failed to open stream", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := p.statusError(resp)
		p.record(false, statusErr)
		return nil, statusErr
	}

	p.record(true, nil)
	return resp, nil
}

// DoJSONRequest performs a buffered JSON request and decodes the response.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return p.timeoutError(err)
		}
		return &ParseError{
			Provider: p.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    p.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close closes idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	slog.Debug("provider closed", "provider", p.config.Name)
	return nil
}

func (p *HTTPProvider) send(ctx context.Context, client *http.Client, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("sending request to provider",
		"provider", p.config.Name,
		"method", method,
		"url", url,
	)

	return client.Do(req)
}

// statusError consumes resp and maps its status to a typed error.
func (p *HTTPProvider) statusError(resp *http.Response) error {
	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{
			Provider: p.config.Name,
			Message:  string(errorBody),
		}
	case http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   p.config.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    string(errorBody),
		}
	default:
		return &ProviderError{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
	}
}

func (p *HTTPProvider) timeoutError(cause error) error {
	return &TimeoutError{
		Provider: p.config.Name,
		Timeout:  p.config.Timeout,
		Cause:    cause,
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
