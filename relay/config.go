package relay

import (
	"github.com/alfredmayaki/chatrelay/pkg/eventstream"
	"github.com/alfredmayaki/chatrelay/pkg/llm/provider"
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8787")
	ListenAddr string

	// ProviderType selects the upstream provider adapter (e.g., "anthropic",
	// "gemini", "openai", "workersai").
	ProviderType string

	// Provider carries the adapter settings (credentials, model, version).
	Provider provider.Settings

	// Publisher is an optional event stream backend for completed turns.
	// If nil, turn events are discarded.
	Publisher eventstream.Publisher

	// NumWorkers overrides the event worker pool size.
	NumWorkers uint

	// QueueSize overrides the event worker pool queue capacity.
	QueueSize uint
}
