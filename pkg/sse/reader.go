// Package sse provides minimal, purpose-built SSE (Server-Sent Events) line
// framing for the chatrelay. The Reader consumes an upstream LLM provider's
// streaming body and yields data payloads one line at a time, regardless of
// how the bytes were chunked on the wire. The Writer emits the relay's
// normalized outward frames.
//
// This package intentionally does not interpret payload contents: extracting
// a text delta from a vendor-specific JSON shape is the adapter's job.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"bufio"
	"io"
	"strings"
)

// doneSentinel is the literal terminator token some upstreams (OpenAI,
// Workers AI) emit as their final data line.
const doneSentinel = "[DONE]"

// Reader yields data payload lines from an upstream streaming body.
//
// Each call to Next returns the next non-empty payload with an optional
// "data:" prefix and surrounding whitespace stripped. Blank lines, comment
// lines (leading ':'), and other SSE fields ("event:", "id:", "retry:") are
// skipped. The literal "[DONE]" terminator and source exhaustion both return
// io.EOF. A final unterminated line is processed like any other, which
// handles upstreams that omit the trailing newline.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader returns a Reader over the given upstream body.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{scanner: scanner}
}

// Next returns the next data payload, or io.EOF when the stream is done.
func (r *Reader) Next() (string, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())

		if line == "" {
			continue
		}

		// Comment lines are keep-alives on some providers.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if field, value, ok := strings.Cut(line, ":"); ok {
			switch field {
			case "data":
				line = strings.TrimSpace(value)
			case "event", "id", "retry":
				// Only data payloads matter for delta extraction.
				continue
			}
		}

		if line == "" {
			continue
		}
		if line == doneSentinel {
			return "", io.EOF
		}

		return line, nil
	}

	if err := r.scanner.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}
