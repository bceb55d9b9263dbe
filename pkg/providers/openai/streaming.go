package openai

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"tianji-hq/oracle/pkg/providers"
)

const maxLineSize = 1 << 20

// streamReader reads Server-Sent Events from an OpenAI-compatible stream.
type streamReader struct {
	name    string
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func newStreamReader(name string, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &streamReader{name: name, body: body, scanner: scanner}
}

// Read returns the next chunk. It returns io.EOF after [DONE] or when the
// connection ends.
func (s *streamReader) Read() (*providers.StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Skip blank lines, comments, and non-data fields
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}

		var raw OpenAIStreamResponse
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.name,
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}
		return transformStreamChunk(&raw), nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return nil, &providers.StreamError{
			Provider: s.name,
			Message:  "failed to read stream",
			Cause:    err,
		}
	}
	return nil, io.EOF
}

// Close closes the response body.
func (s *streamReader) Close() error {
	s.done = true
	return s.body.Close()
}
