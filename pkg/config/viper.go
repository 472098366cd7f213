package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/alfredmayaki/chatrelay/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the CHATRELAY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CHATRELAY_RELAY_LISTEN, CHATRELAY_EVENTS_TOPIC, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: CHATRELAY_RELAY_PROVIDER, CHATRELAY_AUTH_LISTEN, etc.
	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Relay
	v.SetDefault("relay.provider", d.Relay.Provider)
	v.SetDefault("relay.listen", d.Relay.Listen)

	// Provider
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.api_version", d.Provider.APIVersion)
	v.SetDefault("provider.base_url", d.Provider.BaseURL)
	v.SetDefault("provider.account_id", d.Provider.AccountID)

	// Client
	v.SetDefault("client.relay_target", d.Client.RelayTarget)
	v.SetDefault("client.max_message_chars", d.Client.MaxMessageChars)
	v.SetDefault("client.max_history_turns", d.Client.MaxHistoryTurns)
	v.SetDefault("client.request_timeout_ms", d.Client.RequestTimeoutMs)
	v.SetDefault("client.stream", d.Client.Stream)

	// Events
	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Auth
	v.SetDefault("auth.listen", d.Auth.Listen)
	v.SetDefault("auth.allowed_origin", d.Auth.AllowedOrigin)
}
