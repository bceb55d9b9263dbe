package anthropic

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"tianji-hq/oracle/pkg/providers"
)

const maxLineSize = 1 << 20

// streamReader reads Server-Sent Events from Anthropic's streaming API.
type streamReader struct {
	name    string
	body    io.ReadCloser
	scanner *bufio.Scanner
	state   streamState
	done    bool
}

func newStreamReader(name string, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &streamReader{name: name, body: body, scanner: scanner}
}

// Read returns the next chunk worth forwarding. It returns io.EOF after
// message_stop or when the connection ends.
func (s *streamReader) Read() (*providers.StreamChunk, error) {
	for !s.done {
		event, err := s.readEvent()
		if err != nil {
			s.done = true
			return nil, err
		}

		chunk, done, err := transformStreamEvent(event, &s.state)
		if err != nil {
			s.done = true
			return nil, &providers.StreamError{Provider: s.name, Message: "upstream error", Cause: err}
		}
		if done {
			s.done = true
			break
		}
		if chunk != nil {
			return chunk, nil
		}
	}
	return nil, io.EOF
}

// readEvent reads lines up to the next blank line and decodes the event.
func (s *streamReader) readEvent() (*AnthropicStreamEvent, error) {
	var eventType string
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				break
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return nil, &providers.StreamError{Provider: s.name, Message: "failed to read stream", Cause: err}
	}
	if eventType == "" && len(dataLines) == 0 {
		return nil, io.EOF
	}

	var event AnthropicStreamEvent
	if data := strings.Join(dataLines, "\n"); data != "" {
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.name,
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream event: %w", err),
			}
		}
	}
	if event.Type == "" {
		event.Type = eventType
	}
	return &event, nil
}

// Close closes the response body.
func (s *streamReader) Close() error {
	s.done = true
	return s.body.Close()
}
