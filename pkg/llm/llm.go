// Package llm holds the provider-agnostic contract shared by all upstream
// adapters: call timeouts, the delta stream abstraction, and the error
// taxonomy. Vendor wire formats never leak past this boundary.
package llm

import "time"

const (
	// CompleteTimeout bounds a non-streaming upstream call.
	CompleteTimeout = 25 * time.Second

	// StreamTimeout bounds a streaming upstream call end to end. Generous,
	// since streaming responses trickle.
	StreamTimeout = 120 * time.Second
)

// DeltaStream yields incremental fragments of generated text in plain form,
// regardless of the vendor's wire framing. Next returns io.EOF when the
// upstream stream is done. Close releases the underlying connection and may
// be called at any time.
type DeltaStream interface {
	Next() (string, error)
	Close() error
}
