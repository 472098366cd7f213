// Package openai implements the adapter for OpenAI's Responses API.
package openai

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
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

// Config configures the OpenAI adapter.
type Config struct {
	// APIKey is the bearer token credential. Required.
	APIKey string

	// Model selects the model. Empty selects the default.
	Model string

	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string

	// HTTPClient overrides the transport. Nil selects http.DefaultClient.
	HTTPClient *http.Client
}

type adapter struct {
	config Config
}

// New creates an OpenAI adapter.
func New(config Config) *adapter {
	if config.Model == "" {
		config.Model = defaultModel
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
	return "openai"
}

func (a *adapter) checkConfig() error {
	if a.config.APIKey == "" {
		return fmt.Errorf("openai: %w (set OPENAI_API_KEY)", llm.ErrMissingAPIKey)
	}
	return nil
}

// buildInput maps the public user/bot role vocabulary onto the Responses
// API's user/assistant roles, in order, with the new message as the final
// turn.
func buildInput(message string, history []chat.Turn) []responsesMsg {
	input := make([]responsesMsg, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == chat.RoleBot {
			role = "assistant"
		}
		input = append(input, responsesMsg{Role: role, Content: turn.Text})
	}
	return append(input, responsesMsg{Role: "user", Content: message})
}

func (a *adapter) newRequest(ctx context.Context, message string, history []chat.Turn, stream bool) (*http.Request, error) {
	body, err := json.Marshal(responsesRequest{
		Model:  a.config.Model,
		Input:  buildInput(message, history),
		Stream: stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

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
		return "", fmt.Errorf("calling openai: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading openai response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return "", &llm.UpstreamError{
			Provider:   a.Name(),
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var resp responsesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %s", string(respBody))
	}

	var text strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" {
				text.WriteString(content.Text)
			}
		}
	}

	if text.Len() == 0 {
		reason := resp.Status
		if resp.IncompleteDetails != nil && resp.IncompleteDetails.Reason != "" {
			reason = resp.IncompleteDetails.Reason
		}
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

	ctx, cancel := context.WithTimeout(ctx, llm.StreamTimeout)

	req, err := a.newRequest(ctx, message, history, true)
	if err != nil {
		cancel()
		return nil, err
	}

	httpResp, err := a.config.HTTPClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("calling openai: %w", err)
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

// deltaStream extracts response.output_text.delta events from the SSE
// payload lines.
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

		var ev responsesStreamEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Type == "response.completed" {
			return "", io.EOF
		}
		if ev.Type == "response.output_text.delta" && ev.Delta != "" {
			return ev.Delta, nil
		}
	}
}

func (s *deltaStream) Close() error {
	s.cancel()
	return s.body.Close()
}
