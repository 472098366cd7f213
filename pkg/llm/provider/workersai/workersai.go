// Package workersai implements the adapter for Cloudflare's managed
// inference (Workers AI) REST API.
package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
	"github.com/alfredmayaki/chatrelay/pkg/llm"
	"github.com/alfredmayaki/chatrelay/pkg/sse"
)

const (
	defaultBaseURL = "https://api.cloudflare.com"
	defaultModel   = "@cf/meta/llama-3.1-8b-instruct"
)

// ErrMissingAccountID is returned when no Cloudflare account identifier is
// configured. The run endpoint is scoped per account, so there is no default.
var ErrMissingAccountID = errors.New("missing account ID")

// Config configures the Workers AI adapter.
type Config struct {
	// APIToken is the Cloudflare API token. Required.
	APIToken string

	// AccountID is the Cloudflare account identifier. Required.
	AccountID string

	// Model selects the Workers AI model binding. Empty selects the default.
	Model string

	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string

	// HTTPClient overrides the transport. Nil selects http.DefaultClient.
	HTTPClient *http.Client
}

type adapter struct {
	config Config
}

// New creates a Workers AI adapter.
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
	return "workersai"
}

func (a *adapter) checkConfig() error {
	if a.config.APIToken == "" {
		return fmt.Errorf("workersai: %w (set CLOUDFLARE_API_TOKEN)", llm.ErrMissingAPIKey)
	}
	if a.config.AccountID == "" {
		return fmt.Errorf("workersai: %w (set CLOUDFLARE_ACCOUNT_ID)", ErrMissingAccountID)
	}
	return nil
}

// buildMessages maps the public user/bot role vocabulary onto the chat
// message roles Workers AI expects, with the new message as the final turn.
func buildMessages(message string, history []chat.Turn) []workersAIMessage {
	messages := make([]workersAIMessage, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == chat.RoleBot {
			role = "assistant"
		}
		messages = append(messages, workersAIMessage{Role: role, Content: turn.Text})
	}
	return append(messages, workersAIMessage{Role: "user", Content: message})
}

func (a *adapter) newRequest(ctx context.Context, message string, history []chat.Turn, stream bool) (*http.Request, error) {
	body, err := json.Marshal(workersAIRequest{
		Messages: buildMessages(message, history),
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/client/v4/accounts/%s/ai/run/%s", a.config.BaseURL, a.config.AccountID, a.config.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIToken)

	return req, nil
}

// envelopeError flattens the envelope's errors array into one message.
func envelopeError(resp *workersAIResponse) string {
	if len(resp.Errors) == 0 {
		return "request not successful"
	}
	parts := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		parts = append(parts, fmt.Sprintf("%d %s", e.Code, e.Message))
	}
	return strings.Join(parts, "; ")
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
		return "", fmt.Errorf("calling workersai: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading workersai response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return "", &llm.UpstreamError{
			Provider:   a.Name(),
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var resp workersAIResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %s", string(respBody))
	}

	if !resp.Success {
		return "", &llm.UpstreamError{
			Provider:   a.Name(),
			StatusCode: httpResp.StatusCode,
			Body:       envelopeError(&resp),
		}
	}

	if resp.Result.Response == "" {
		return "No response. Stop reason: unknown", nil
	}

	return resp.Result.Response, nil
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
		return nil, fmt.Errorf("calling workersai: %w", err)
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

// deltaStream extracts response text from the SSE payload lines. Workers AI
// terminates the stream with the [DONE] sentinel, which the reader maps to
// io.EOF.
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

		var chunk workersAIStreamChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		if chunk.Response != "" {
			return chunk.Response, nil
		}
	}
}

func (s *deltaStream) Close() error {
	s.cancel()
	return s.body.Close()
}
