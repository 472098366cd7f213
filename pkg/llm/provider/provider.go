// Package provider selects and constructs the upstream LLM adapters. Each
// adapter implementation lives in its own subpackage and translates a
// normalized (message, history) pair into its vendor-specific HTTP call.
package provider

import (
	"context"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
	"github.com/alfredmayaki/chatrelay/pkg/llm"
)

// Adapter is the uniform completion/streaming contract implemented once per
// provider.
type Adapter interface {
	// Name returns the canonical provider name (e.g. "anthropic", "gemini").
	Name() string

	// Complete sends the message with the given prior history and returns the
	// full reply text. History is mapped in order to the provider's own role
	// vocabulary, followed by the new user message as the final turn.
	Complete(ctx context.Context, message string, history []chat.Turn) (string, error)

	// Stream is like Complete but returns the reply incrementally as a
	// sequence of plain text deltas.
	Stream(ctx context.Context, message string, history []chat.Turn) (llm.DeltaStream, error)
}
