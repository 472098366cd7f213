package config

const (
	defaultProvider    = "anthropic"
	defaultRelayListen = ":8787"

	defaultClientRelayTarget      = "http://localhost:8787"
	defaultClientMaxMessageChars  = 1000
	defaultClientMaxHistoryTurns  = 6
	defaultClientRequestTimeoutMs = 30000

	defaultEventsBrokers = "localhost:9092"
	defaultEventsTopic   = "chatrelay-turns"

	defaultAuthListen = ":8788"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Provider: defaultProvider,
			Listen:   defaultRelayListen,
		},
		Client: ClientConfig{
			RelayTarget:      defaultClientRelayTarget,
			MaxMessageChars:  defaultClientMaxMessageChars,
			MaxHistoryTurns:  defaultClientMaxHistoryTurns,
			RequestTimeoutMs: defaultClientRequestTimeoutMs,
		},
		Events: EventsConfig{
			Brokers: defaultEventsBrokers,
			Topic:   defaultEventsTopic,
		},
		Auth: AuthConfig{
			Listen: defaultAuthListen,
		},
	}
}
