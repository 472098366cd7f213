// Package anthropic implements the adapter for Anthropic's Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
	"github.com/alfredmayaki/chatrelay/pkg/llm"
	"github.com/alfredmayaki/chatrelay/pkg/sse"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-5-sonnet-20241022"
	defaultVersion = "2023-06-01"

	maxTokens = 4096
)

// supportedVersions is the allow-list of anthropic-version header values.
// A tag outside this list fails fast before any network call.
var supportedVersions = map[string]struct{}{
	"2023-06-01": {},
	"2023-01-01": {},
}

// legacyModelPrefixes marks chat model variants that predate streaming
// support on the Messages API.
var legacyModelPrefixes = []string{"claude-2", "claude-instant"}

// Config configures the Anthropic adapter.
type Config struct {
	// APIKey is the x-api-key credential. Required.
	APIKey string

	// Model selects the Claude model. Empty selects the default.
	Model string

	// Version is the anthropic-version header value. Empty selects the default.
	Version string

	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string

	// HTTPClient overrides the transport. Nil selects http.DefaultClient.
	HTTPClient *http.Client
}

type adapter struct {
	config Config
}

// New creates an Anthropic adapter. Configuration problems are surfaced at
// request time so the relay can map them onto descriptive replies.
func New(config Config) *adapter {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Version == "" {
		config.Version = defaultVersion
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	return &adapter{config: config}
}

func (a *adapter) Name() string {
	return "anthropic"
}

// checkConfig fails fast on missing credentials or an unsupported version
// tag, before any network call.
func (a *adapter) checkConfig() error {
	if a.config.APIKey == "" {
		return fmt.Errorf("anthropic: %w (set ANTHROPIC_API_KEY)", llm.ErrMissingAPIKey)
	}
	if _, ok := supportedVersions[a.config.Version]; !ok {
		return fmt.Errorf("anthropic: %w: %q", llm.ErrUnsupportedAPIVersion, a.config.Version)
	}
	return nil
}

// buildMessages maps the public user/bot role vocabulary onto Anthropic's
// user/assistant roles, in order, with the new message as the final turn.
func buildMessages(message string, history []chat.Turn) []anthropicMessage {
	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == chat.RoleBot {
			role = "assistant"
		}
		messages = append(messages, anthropicMessage{Role: role, Content: turn.Text})
	}
	return append(messages, anthropicMessage{Role: "user", Content: message})
}

func (a *adapter) newRequest(ctx context.Context, message string, history []chat.Turn, stream bool) (*http.Request, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     a.config.Model,
		MaxTokens: maxTokens,
		Messages:  buildMessages(message, history),
		Stream:    stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.config.APIKey)
	req.Header.Set("anthropic-version", a.config.Version)

	return req, nil
}

func (a *adapter) Complete(ctx context.Context, message string, history []chat.Turn) (string, error) {
	if err := a.checkConfig(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, llm.CompleteTimeout)
	defer cancel()

	req, err := a.newRequest(ctx, message, history, false)
	if err != nil {
		return "", err
	}

	httpResp, err := a.config.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling anthropic: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading anthropic response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return "", &llm.UpstreamError{
			Provider:   a.Name(),
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %s", string(respBody))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	// Never return an empty string: the client would render a blank bubble
	// with no explanation.
	if text.Len() == 0 {
		reason := resp.StopReason
		if reason == "" {
			reason = "unknown"
		}
		return fmt.Sprintf("No response. Stop reason: %s", reason), nil
	}

	return text.String(), nil
}

func (a *adapter) Stream(ctx context.Context, message string, history []chat.Turn) (llm.DeltaStream, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}

	for _, prefix := range legacyModelPrefixes {
		if strings.HasPrefix(a.config.Model, prefix) {
			return nil, fmt.Errorf("anthropic: model %q: %w", a.config.Model, llm.ErrStreamingNotSupported)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, llm.StreamTimeout)

	req, err := a.newRequest(ctx, message, history, true)
	if err != nil {
		cancel()
		return nil, err
	}

	httpResp, err := a.config.HTTPClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("calling anthropic: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		cancel()
		return nil, &llm.UpstreamError{
			Provider:   a.Name(),
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	return &deltaStream{
		reader: sse.NewReader(httpResp.Body),
		body:   httpResp.Body,
		cancel: cancel,
	}, nil
}

// deltaStream extracts content_block_delta text from the SSE payload lines.
type deltaStream struct {
	reader *sse.Reader
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (s *deltaStream) Next() (string, error) {
	for {
		line, err := s.reader.Next()
		if err != nil {
			return "", err
		}

		// Unparsable lines are keep-alives or unrelated frames.
		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Type == "message_stop" {
			return "", io.EOF
		}
		if ev.Type == "content_block_delta" && ev.Delta.Text != "" {
			return ev.Delta.Text, nil
		}
	}
}

func (s *deltaStream) Close() error {
	s.cancel()
	return s.body.Close()
}
