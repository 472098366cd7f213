package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent chatrelay configuration stored as
// config.toml in the .chatrelay/ directory. The TOML layout uses sections
// for logical grouping. Provider credentials are never stored here; they
// come from the environment.
type Config struct {
	Version  int            `toml:"version"`
	Relay    RelayConfig    `toml:"relay"`
	Provider ProviderConfig `toml:"provider"`
	Client   ClientConfig   `toml:"client"`
	Events   EventsConfig   `toml:"events"`
	Auth     AuthConfig     `toml:"auth"`
}

// RelayConfig holds relay server settings.
type RelayConfig struct {
	Provider string `toml:"provider,omitempty"`
	Listen   string `toml:"listen,omitempty"`
}

// ProviderConfig holds upstream provider adapter settings.
type ProviderConfig struct {
	Model      string `toml:"model,omitempty"`
	APIVersion string `toml:"api_version,omitempty"`
	BaseURL    string `toml:"base_url,omitempty"`
	AccountID  string `toml:"account_id,omitempty"`
}

// ClientConfig holds settings for the chat client session: the CLI chat
// command and anything else that drives the relay's /chat endpoint.
type ClientConfig struct {
	RelayTarget      string `toml:"relay_target,omitempty"`
	MaxMessageChars  int    `toml:"max_message_chars,omitempty"`
	MaxHistoryTurns  int    `toml:"max_history_turns,omitempty"`
	RequestTimeoutMs int    `toml:"request_timeout_ms,omitempty"`
	Stream           bool   `toml:"stream,omitempty"`
}

// EventsConfig holds turn event publishing settings.
type EventsConfig struct {
	Enabled bool   `toml:"enabled,omitempty"`
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// AuthConfig holds the auth relay server settings.
type AuthConfig struct {
	Listen        string `toml:"listen,omitempty"`
	AllowedOrigin string `toml:"allowed_origin,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"relay.provider": {
		get: func(c *Config) string { return c.Relay.Provider },
		set: func(c *Config, v string) error { c.Relay.Provider = v; return nil },
	},
	"relay.listen": {
		get: func(c *Config) string { return c.Relay.Listen },
		set: func(c *Config, v string) error { c.Relay.Listen = v; return nil },
	},
	"provider.model": {
		get: func(c *Config) string { return c.Provider.Model },
		set: func(c *Config, v string) error { c.Provider.Model = v; return nil },
	},
	"provider.api_version": {
		get: func(c *Config) string { return c.Provider.APIVersion },
		set: func(c *Config, v string) error { c.Provider.APIVersion = v; return nil },
	},
	"provider.base_url": {
		get: func(c *Config) string { return c.Provider.BaseURL },
		set: func(c *Config, v string) error { c.Provider.BaseURL = v; return nil },
	},
	"provider.account_id": {
		get: func(c *Config) string { return c.Provider.AccountID },
		set: func(c *Config, v string) error { c.Provider.AccountID = v; return nil },
	},
	"client.relay_target": {
		get: func(c *Config) string { return c.Client.RelayTarget },
		set: func(c *Config, v string) error { c.Client.RelayTarget = v; return nil },
	},
	"client.max_message_chars": {
		get: func(c *Config) string { return strconv.Itoa(c.Client.MaxMessageChars) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.max_message_chars: %w", err)
			}
			c.Client.MaxMessageChars = n
			return nil
		},
	},
	"client.max_history_turns": {
		get: func(c *Config) string { return strconv.Itoa(c.Client.MaxHistoryTurns) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.max_history_turns: %w", err)
			}
			c.Client.MaxHistoryTurns = n
			return nil
		},
	},
	"client.request_timeout_ms": {
		get: func(c *Config) string { return strconv.Itoa(c.Client.RequestTimeoutMs) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.request_timeout_ms: %w", err)
			}
			c.Client.RequestTimeoutMs = n
			return nil
		},
	},
	"client.stream": {
		get: func(c *Config) string { return strconv.FormatBool(c.Client.Stream) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.stream: %w", err)
			}
			c.Client.Stream = b
			return nil
		},
	},
	"events.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Events.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for events.enabled: %w", err)
			}
			c.Events.Enabled = b
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"auth.listen": {
		get: func(c *Config) string { return c.Auth.Listen },
		set: func(c *Config, v string) error { c.Auth.Listen = v; return nil },
	},
	"auth.allowed_origin": {
		get: func(c *Config) string { return c.Auth.AllowedOrigin },
		set: func(c *Config, v string) error { c.Auth.AllowedOrigin = v; return nil },
	},
}
