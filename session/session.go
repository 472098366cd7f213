// Package session implements the client-side request lifecycle for a chat
// conversation: normalization, the single in-flight invariant, the bounded
// history ring, request timeout, and user cancellation. It drives an external
// Renderer so the same controller backs both the interactive CLI chat and
// tests with a recording fake.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
	"github.com/alfredmayaki/chatrelay/pkg/logger"
)

const (
	// DefaultRequestTimeout is how long a submit waits before the request
	// is cancelled and surfaced as a timeout.
	DefaultRequestTimeout = 30 * time.Second

	thinkingText        = "Thinking..."
	emptyReplyText      = "(empty reply)"
	timedOutText        = "Request timed out. Please try again."
	cancelledText       = "Request cancelled."
	invalidResponseText = "Received an invalid response from the server."
)

// BotBubble is a handle to one mutable bot message. The controller updates
// a bubble's text repeatedly as a request settles; it never creates a second
// text node for the same turn.
type BotBubble interface {
	SetText(text string)
}

// Renderer is the external UI the controller drives. Implementations own all
// presentation; the controller only decides what text goes where and when
// input is usable.
type Renderer interface {
	NewUserBubble(text string)
	NewBotBubble(text string) BotBubble
	InputEnabled(enabled bool)
	Focus()
	ScrollToLatest()
}

// Config holds the knobs for a Controller. Zero values fall back to the
// package defaults.
type Config struct {
	// Endpoint is the relay /chat URL.
	Endpoint string

	// MaxMessageChars caps the normalized message length. Longer messages
	// are rejected locally with no network call.
	MaxMessageChars int

	// MaxHistoryTurns caps the history ring at 2×turns entries.
	MaxHistoryTurns int

	// RequestTimeout bounds one submit end to end.
	RequestTimeout time.Duration

	// HTTPClient is the transport used for requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// InitialHistory seeds the history ring, oldest first. Used by the CLI
	// to resume a saved conversation.
	InitialHistory []chat.Turn

	Renderer Renderer
	Logger   *slog.Logger
}

// Controller owns one conversation. It is safe to call Cancel concurrently
// with a blocking Submit; Submit itself must not be called concurrently with
// another Submit on the same controller (the guard turns the second call into
// a no-op rather than queueing it).
type Controller struct {
	endpoint        string
	maxMessageChars int
	requestTimeout  time.Duration
	client          *http.Client
	renderer        Renderer
	logger          *slog.Logger

	history *chat.History

	mu            sync.Mutex
	inFlight      bool
	cancel        context.CancelFunc
	userCancelled bool
	onSettled     []func()
}

// New creates a Controller from cfg. The Renderer is required.
func New(cfg Config) (*Controller, error) {
	if cfg.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	if cfg.MaxMessageChars <= 0 {
		cfg.MaxMessageChars = chat.DefaultMaxMessageChars
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	history := chat.NewHistory(cfg.MaxHistoryTurns)
	for _, turn := range cfg.InitialHistory {
		history.Push(turn.Role, turn.Text)
	}

	return &Controller{
		endpoint:        cfg.Endpoint,
		maxMessageChars: cfg.MaxMessageChars,
		requestTimeout:  cfg.RequestTimeout,
		client:          cfg.HTTPClient,
		renderer:        cfg.Renderer,
		logger:          cfg.Logger,
		history:         history,
	}, nil
}

// OnSettled registers fn to run after every settle, regardless of outcome.
func (c *Controller) OnSettled(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSettled = append(c.onSettled, fn)
}

// History returns a snapshot of the retained turns, oldest first.
func (c *Controller) History() []chat.Turn {
	return c.history.Snapshot()
}

// Submit runs one full request lifecycle for text. Every outcome resolves to
// a bubble-text update; Submit never returns an error to the caller.
//
// An empty (after normalization) message is silently ignored. An over-length
// message is rejected inline with no network call. A submit while another is
// in flight is a logged no-op.
func (c *Controller) Submit(text string) {
	message := chat.Normalize(text)
	if message == "" {
		return
	}

	if utf8.RuneCountInString(message) > c.maxMessageChars {
		notice := c.renderer.NewBotBubble("")
		notice.SetText(fmt.Sprintf("Message is too long (max %d characters).", c.maxMessageChars))
		c.renderer.ScrollToLatest()
		return
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.logger.Warn("submit dropped, request already in flight")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	c.inFlight = true
	c.cancel = cancel
	c.userCancelled = false
	c.mu.Unlock()

	defer c.settle(cancel)

	// The history sent with this request excludes the turn being submitted;
	// the new user turn rides in the history of the next request.
	snapshot := c.history.Snapshot()
	c.history.Push(chat.RoleUser, message)

	c.renderer.NewUserBubble(message)
	bubble := c.renderer.NewBotBubble(thinkingText)
	c.renderer.InputEnabled(false)
	c.renderer.ScrollToLatest()

	reply, err := c.post(ctx, chat.Request{
		Message: message,
		History: snapshot,
	})
	if err != nil {
		bubble.SetText(c.failureText(ctx, err))
		return
	}

	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		bubble.SetText(emptyReplyText)
	} else {
		bubble.SetText(trimmed)
	}
	c.history.Push(chat.RoleBot, trimmed)
}

// Cancel aborts the in-flight request, if any. The abandoned request makes
// no history mutation. Calling Cancel while idle is a no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inFlight || c.cancel == nil {
		return
	}

	c.userCancelled = true
	c.cancel()
}

// post issues the request and returns the server's reply text. All failure
// modes come back as errors for failureText to classify.
func (c *Controller) post(ctx context.Context, chatReq chat.Request) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &serverError{status: resp.StatusCode, body: string(raw)}
	}

	reply := chat.Reply{}
	if err := json.Unmarshal(raw, &reply); err != nil {
		c.logger.Error("unparsable reply body", "err", err, "body", string(raw))
		return "", errInvalidResponse
	}

	return reply.Reply, nil
}

var errInvalidResponse = errors.New("invalid response body")

// serverError is a non-2xx relay response.
type serverError struct {
	status int
	body   string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.status, e.body)
}

// failureText maps a failed request to the user-facing bubble text. A user
// cancel and a timeout both abort the transport call but read differently.
func (c *Controller) failureText(ctx context.Context, err error) string {
	c.mu.Lock()
	userCancelled := c.userCancelled
	c.mu.Unlock()

	switch {
	case userCancelled:
		return cancelledText

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return timedOutText

	case errors.Is(err, errInvalidResponse):
		return invalidResponseText
	}

	srvErr := &serverError{}
	if errors.As(err, &srvErr) {
		detail := strings.TrimSpace(srvErr.body)
		if detail == "" {
			return fmt.Sprintf("Server error: %d.", srvErr.status)
		}
		return fmt.Sprintf("Server error: %d. %s", srvErr.status, detail)
	}

	c.logger.Error("chat request failed", "err", err)
	return fmt.Sprintf("Network error: %s. Check that the relay is running and reachable.", err)
}

// settle clears the in-flight state and hands control back to the user. Runs
// after every submit regardless of outcome.
func (c *Controller) settle(cancel context.CancelFunc) {
	cancel()

	c.mu.Lock()
	c.inFlight = false
	c.cancel = nil
	callbacks := make([]func(), len(c.onSettled))
	copy(callbacks, c.onSettled)
	c.mu.Unlock()

	c.renderer.InputEnabled(true)
	c.renderer.Focus()
	c.renderer.ScrollToLatest()

	for _, fn := range callbacks {
		fn()
	}
}
