package provider

import (
	"fmt"
	"net/http"

	"github.com/alfredmayaki/chatrelay/pkg/llm/provider/anthropic"
	"github.com/alfredmayaki/chatrelay/pkg/llm/provider/gemini"
	"github.com/alfredmayaki/chatrelay/pkg/llm/provider/openai"
	"github.com/alfredmayaki/chatrelay/pkg/llm/provider/workersai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	Gemini    = "gemini"
	OpenAI    = "openai"
	WorkersAI = "workersai"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, Gemini, OpenAI, WorkersAI}
}

// Settings carries the configuration surface shared by all adapters. Fields
// that a given provider does not use are ignored by it.
type Settings struct {
	// Model is the provider model name. Empty selects the provider default.
	Model string

	// APIKey is the provider credential (API key or bearer token).
	APIKey string

	// APIVersion is the provider API version tag (Anthropic version header,
	// Gemini path version). Empty selects the provider default.
	APIVersion string

	// AccountID is the Workers AI account identifier.
	AccountID string

	// BaseURL overrides the provider endpoint, used by tests.
	BaseURL string

	// HTTPClient overrides the transport. Nil selects http.DefaultClient.
	HTTPClient *http.Client
}

// New creates an Adapter for the given provider type.
// Returns an error if the provider type is not recognized.
func New(providerType string, s Settings) (Adapter, error) {
	switch providerType {
	case Anthropic:
		return anthropic.New(anthropic.Config{
			APIKey:     s.APIKey,
			Model:      s.Model,
			Version:    s.APIVersion,
			BaseURL:    s.BaseURL,
			HTTPClient: s.HTTPClient,
		}), nil
	case Gemini:
		return gemini.New(gemini.Config{
			APIKey:     s.APIKey,
			Model:      s.Model,
			APIVersion: s.APIVersion,
			BaseURL:    s.BaseURL,
			HTTPClient: s.HTTPClient,
		}), nil
	case OpenAI:
		return openai.New(openai.Config{
			APIKey:     s.APIKey,
			Model:      s.Model,
			BaseURL:    s.BaseURL,
			HTTPClient: s.HTTPClient,
		}), nil
	case WorkersAI:
		return workersai.New(workersai.Config{
			APIToken:   s.APIKey,
			AccountID:  s.AccountID,
			Model:      s.Model,
			BaseURL:    s.BaseURL,
			HTTPClient: s.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}
