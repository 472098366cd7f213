// Package gemini implements the adapter for Google's Generative Language
// (Gemini) API.
package gemini

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
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultModel      = "gemini-1.5-flash"
	defaultAPIVersion = "v1beta"
)

// supportedAPIVersions is the allow-list of URL path version tags. Anything
// else would produce an opaque upstream 404, so it fails fast instead.
var supportedAPIVersions = map[string]struct{}{
	"v1":     {},
	"v1beta": {},
}

// Config configures the Gemini adapter.
type Config struct {
	// APIKey is the Generative Language API key. Required.
	APIKey string

	// Model selects the Gemini model. Empty selects the default.
	Model string

	// APIVersion is the URL path version tag. Empty selects the default.
	APIVersion string

	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string

	// HTTPClient overrides the transport. Nil selects http.DefaultClient.
	HTTPClient *http.Client
}

type adapter struct {
	config Config
}

// New creates a Gemini adapter.
func New(config Config) *adapter {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.APIVersion == "" {
		config.APIVersion = defaultAPIVersion
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
	return "gemini"
}

func (a *adapter) checkConfig() error {
	if a.config.APIKey == "" {
		return fmt.Errorf("gemini: %w (set GEMINI_API_KEY)", llm.ErrMissingAPIKey)
	}
	if _, ok := supportedAPIVersions[a.config.APIVersion]; !ok {
		return fmt.Errorf("gemini: %w: %q", llm.ErrUnsupportedAPIVersion, a.config.APIVersion)
	}
	return nil
}

// buildContents maps the public user/bot role vocabulary onto Gemini's
// user/model roles, in order, with the new message as the final turn.
func buildContents(message string, history []chat.Turn) []geminiContent {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == chat.RoleBot {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Text}},
		})
	}
	return append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: message}},
	})
}

func (a *adapter) newRequest(ctx context.Context, message string, history []chat.Turn, stream bool) (*http.Request, error) {
	body, err := json.Marshal(geminiRequest{Contents: buildContents(message, history)})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	method := "generateContent"
	query := "?key=" + a.config.APIKey
	if stream {
		method = "streamGenerateContent"
		query = "?alt=sse&key=" + a.config.APIKey
	}

	url := fmt.Sprintf("%s/%s/models/%s:%s%s", a.config.BaseURL, a.config.APIVersion, a.config.Model, method, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// candidateText concatenates the part texts of the first candidate.
func candidateText(resp *geminiResponse) (string, string) {
	if len(resp.Candidates) == 0 {
		return "", ""
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), resp.Candidates[0].FinishReason
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
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading gemini response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return "", &llm.UpstreamError{
			Provider:   a.Name(),
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %s", string(respBody))
	}

	text, finishReason := candidateText(&resp)
	if text == "" {
		if finishReason == "" {
			finishReason = "unknown"
		}
		return fmt.Sprintf("No response. Finish reason: %s", finishReason), nil
	}

	return text, nil
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
		return nil, fmt.Errorf("calling gemini: %w", err)
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

// deltaStream extracts candidate part text from the SSE payload lines.
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

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		if text, _ := candidateText(&chunk); text != "" {
			return text, nil
		}
	}
}

func (s *deltaStream) Close() error {
	s.cancel()
	return s.body.Close()
}
