// Package servecmder provides the serve command for running the chat relay
// and, optionally, the auth relay alongside it.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alfredmayaki/chatrelay/auth"
	"github.com/alfredmayaki/chatrelay/pkg/config"
	"github.com/alfredmayaki/chatrelay/pkg/eventstream"
	"github.com/alfredmayaki/chatrelay/pkg/eventstream/kafka"
	"github.com/alfredmayaki/chatrelay/pkg/llm/provider"
	"github.com/alfredmayaki/chatrelay/pkg/logger"
	"github.com/alfredmayaki/chatrelay/relay"
)

type serveCommander struct {
	listen       string
	providerType string
	model        string
	apiVersion   string
	baseURL      string
	accountID    string

	eventsEnabled bool
	eventsBrokers string
	eventsTopic   string

	withAuth      bool
	authListen    string
	allowedOrigin string

	debug  bool
	logger *slog.Logger
}

// serveFlags is the flag registry for the serve command. Every flag maps to
// a dotted config key so the precedence chain is flag > env > file > default.
var serveFlags = config.FlagSet{
	config.FlagRelayListen:   {Name: "listen", Shorthand: "l", ViperKey: "relay.listen", Description: "Address for the chat relay to listen on"},
	config.FlagProvider:      {Name: "provider", Shorthand: "p", ViperKey: "relay.provider", Description: "Upstream LLM provider (anthropic, gemini, openai, workersai)"},
	config.FlagModel:         {Name: "model", Shorthand: "m", ViperKey: "provider.model", Description: "Provider model name (empty selects the provider default)"},
	config.FlagAPIVersion:    {Name: "api-version", ViperKey: "provider.api_version", Description: "Provider API version tag"},
	config.FlagBaseURL:       {Name: "base-url", ViperKey: "provider.base_url", Description: "Provider endpoint override"},
	config.FlagAccountID:     {Name: "account-id", ViperKey: "provider.account_id", Description: "Cloudflare account ID (workersai only)"},
	config.FlagEventsEnabled: {Name: "events", ViperKey: "events.enabled", Description: "Publish completed turns to Kafka"},
	config.FlagEventsBrokers: {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma-separated Kafka broker addresses"},
	config.FlagEventsTopic:   {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for turn events"},
	config.FlagAuthListen:    {Name: "auth-listen", ViperKey: "auth.listen", Description: "Address for the auth relay to listen on"},
	config.FlagAllowedOrigin: {Name: "allowed-origin", ViperKey: "auth.allowed_origin", Description: "Single origin allowed to call the auth relay"},
}

var serveFlagKeys = []string{
	config.FlagRelayListen,
	config.FlagProvider,
	config.FlagModel,
	config.FlagAPIVersion,
	config.FlagBaseURL,
	config.FlagAccountID,
	config.FlagEventsEnabled,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
	config.FlagAuthListen,
	config.FlagAllowedOrigin,
}

const serveLongDesc string = `Run the chat relay server.

The relay accepts browser chat requests on POST /chat and forwards them to
the configured upstream LLM provider, answering with either a JSON reply or
a normalized SSE delta stream.

Provider credentials come from the environment (a local .env file is loaded
if present):
  ANTHROPIC_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY,
  CLOUDFLARE_API_TOKEN and CLOUDFLARE_ACCOUNT_ID

With --auth the GitHub OAuth relay runs alongside; it additionally needs
GITHUB_CLIENT_ID, GITHUB_CLIENT_SECRET, and SESSION_SECRET.

Examples:
  chatrelay serve --provider anthropic
  chatrelay serve --provider workersai --model @cf/meta/llama-3.1-8b-instruct
  chatrelay serve --events --events-brokers localhost:9092`

const serveShortDesc string = "Run the chat relay server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			cmder.listen = v.GetString("relay.listen")
			cmder.providerType = v.GetString("relay.provider")
			cmder.model = v.GetString("provider.model")
			cmder.apiVersion = v.GetString("provider.api_version")
			cmder.baseURL = v.GetString("provider.base_url")
			cmder.accountID = v.GetString("provider.account_id")
			cmder.eventsEnabled = v.GetBool("events.enabled")
			cmder.eventsBrokers = v.GetString("events.brokers")
			cmder.eventsTopic = v.GetString("events.topic")
			cmder.authListen = v.GetString("auth.listen")
			cmder.allowedOrigin = v.GetString("auth.allowed_origin")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	var listen, providerType, model, apiVersion, baseURL, accountID string
	var eventsEnabled bool
	var eventsBrokers, eventsTopic, authListen, allowedOrigin string
	config.AddStringFlag(cmd, serveFlags, config.FlagRelayListen, &listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagProvider, &providerType)
	config.AddStringFlag(cmd, serveFlags, config.FlagModel, &model)
	config.AddStringFlag(cmd, serveFlags, config.FlagAPIVersion, &apiVersion)
	config.AddStringFlag(cmd, serveFlags, config.FlagBaseURL, &baseURL)
	config.AddStringFlag(cmd, serveFlags, config.FlagAccountID, &accountID)
	config.AddBoolFlag(cmd, serveFlags, config.FlagEventsEnabled, &eventsEnabled)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsBrokers, &eventsBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &eventsTopic)
	config.AddStringFlag(cmd, serveFlags, config.FlagAuthListen, &authListen)
	config.AddStringFlag(cmd, serveFlags, config.FlagAllowedOrigin, &allowedOrigin)

	cmd.Flags().BoolVar(&cmder.withAuth, "auth", false, "Also run the GitHub OAuth auth relay")

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
	)

	// A local .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err == nil {
		c.logger.Debug("loaded environment from .env")
	}

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}

	r, err := relay.New(relay.Config{
		ListenAddr:   c.listen,
		ProviderType: c.providerType,
		Provider: provider.Settings{
			Model:      c.model,
			APIKey:     c.apiKey(),
			APIVersion: c.apiVersion,
			AccountID:  c.cloudflareAccountID(),
			BaseURL:    c.baseURL,
		},
		Publisher: publisher,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	errChan := make(chan error, 2)

	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	if c.withAuth {
		authServer, err := auth.New(auth.Config{
			ListenAddr:    c.authListen,
			AllowedOrigin: c.allowedOrigin,
			ClientID:      os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret:  os.Getenv("GITHUB_CLIENT_SECRET"),
			SessionSecret: os.Getenv("SESSION_SECRET"),
		}, c.logger)
		if err != nil {
			return fmt.Errorf("creating auth relay: %w", err)
		}
		defer authServer.Close()

		go func() {
			if err := authServer.Run(); err != nil {
				errChan <- fmt.Errorf("auth relay error: %w", err)
			}
		}()
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}

// newPublisher builds the turn-event publisher. With events disabled the
// relay's worker pool falls back to its nop publisher.
func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	if !c.eventsEnabled {
		return nil, nil
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: strings.Split(c.eventsBrokers, ","),
		Topic:   c.eventsTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	c.logger.Info("turn event publishing enabled",
		"brokers", c.eventsBrokers,
		"topic", c.eventsTopic,
	)
	return publisher, nil
}

// apiKey reads the configured provider's credential from the environment.
func (c *serveCommander) apiKey() string {
	switch c.providerType {
	case provider.Anthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case provider.Gemini:
		return os.Getenv("GEMINI_API_KEY")
	case provider.OpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case provider.WorkersAI:
		return os.Getenv("CLOUDFLARE_API_TOKEN")
	default:
		return ""
	}
}

// cloudflareAccountID falls back to the environment when the config carries
// no account ID.
func (c *serveCommander) cloudflareAccountID() string {
	if c.accountID != "" {
		return c.accountID
	}
	return os.Getenv("CLOUDFLARE_ACCOUNT_ID")
}
