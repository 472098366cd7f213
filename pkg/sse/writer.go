package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer emits the relay's normalized outward SSE frames. Events are written
// as JSON data lines; the terminal sentinel is written as plain data so
// clients detect end-of-stream without JSON-parsing a special value.
type Writer struct {
	dest io.Writer
}

// NewWriter returns a Writer emitting frames to dest. The dest writer
// typically backs an io.Pipe connected to the downstream HTTP response.
func NewWriter(dest io.Writer) *Writer {
	return &Writer{dest: dest}
}

// WriteEvent marshals v and writes it as a "data: <json>\n\n" frame.
func (w *Writer) WriteEvent(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if _, err := fmt.Fprintf(w.dest, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}

	return nil
}

// WriteDone writes the literal "data: [DONE]\n\n" terminal frame.
func (w *Writer) WriteDone() error {
	if _, err := fmt.Fprintf(w.dest, "data: %s\n\n", doneSentinel); err != nil {
		return fmt.Errorf("writing sentinel: %w", err)
	}

	return nil
}
