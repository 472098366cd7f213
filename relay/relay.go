// Package relay provides the edge relay that fronts upstream LLM provider
// APIs for the browser chat client.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
	"github.com/alfredmayaki/chatrelay/pkg/llm"
	"github.com/alfredmayaki/chatrelay/pkg/llm/provider"
	"github.com/alfredmayaki/chatrelay/pkg/utils"
	"github.com/alfredmayaki/chatrelay/relay/worker"
)

const (
	chatPath = "/chat"

	// emptyMessageReply is the canned reply for a blank message. An empty
	// message is a normal idle-UI state, not a client bug, so it resolves
	// with status 200.
	emptyMessageReply = "Please type a message."
)

// Relay is the chat relay server. It accepts browser chat requests on a
// single endpoint, invokes the configured provider adapter, and answers with
// either a JSON reply or a normalized SSE stream. Completed turns are
// enqueued for async event publishing via its worker pool.
type Relay struct {
	config     Config
	adapter    provider.Adapter
	workerPool *worker.Pool
	logger     *slog.Logger
	server     *fiber.App
}

// New creates a new Relay.
// Returns an error if the configured provider type is not recognized.
func New(config Config, logger *slog.Logger) (*Relay, error) {
	if config.ProviderType == "" {
		return nil, errors.New("provider type is required")
	}

	adapter, err := provider.New(config.ProviderType, config.Provider)
	if err != nil {
		return nil, fmt.Errorf("could not create provider adapter: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	wp, err := worker.NewPool(&worker.Config{
		Publisher:  config.Publisher,
		NumWorkers: config.NumWorkers,
		QueueSize:  config.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	r := &Relay{
		config:     config,
		adapter:    adapter,
		workerPool: wp,
		logger:     logger,
		server:     app,
	}

	// The relay is intentionally open: it serves a widget embedded on
	// arbitrary pages, so every response carries permissive CORS headers.
	app.Use(func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Set("Access-Control-Allow-Headers", "Content-Type")
		return c.Next()
	})

	app.Options(chatPath, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Post(chatPath, r.handleChat)

	return r, nil
}

// Run starts the relay server on the configured listening address.
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"provider", r.adapter.Name(),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"provider", r.adapter.Name(),
	)

	return r.server.Listener(listener)
}

// Close gracefully shuts down the relay and waits for the worker pool to
// drain.
func (r *Relay) Close() error {
	err := r.server.Shutdown()
	r.workerPool.Close()
	return err
}

// handleChat serves a single chat turn, dispatching on the stream flag.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	// Lenient parsing: a malformed body is treated as an empty request so
	// the empty-message short-circuit below answers it.
	var req chat.Request
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			r.logger.Warn("failed to parse request body", "error", err)
			req = chat.Request{}
		}
	}

	message := chat.Normalize(req.Message)
	if message == "" {
		return c.JSON(chat.Reply{Reply: emptyMessageReply})
	}

	r.logger.Debug("chat turn accepted",
		"stream", req.Stream,
		"history_len", len(req.History),
		"message", utils.Truncate(message, 80),
	)

	if req.Stream {
		return r.handleStreamingChat(c, message, req.History, startTime)
	}

	return r.handleCompleteChat(c, message, req.History, startTime)
}

// handleCompleteChat invokes the adapter's non-streaming operation and wraps
// the outcome in the uniform reply shape. Adapter failures never escape as an
// empty-bodied 500; the client renders every outcome through the reply field.
func (r *Relay) handleCompleteChat(c *fiber.Ctx, message string, history []chat.Turn, startTime time.Time) error {
	reply, err := r.adapter.Complete(c.Context(), message, history)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, llm.ErrUnsupportedAPIVersion) {
			status = fiber.StatusBadRequest
		}

		r.logger.Error("adapter call failed",
			"provider", r.adapter.Name(),
			"error", err,
		)
		return c.Status(status).JSON(chat.Reply{
			Reply: fmt.Sprintf("Error calling %s API: %s", r.adapter.Name(), err),
		})
	}

	r.logger.Debug("chat turn complete",
		"provider", r.adapter.Name(),
		"duration", time.Since(startTime),
	)

	// Non-blocking enqueue for async event publishing
	r.workerPool.Enqueue(worker.Job{
		Provider:    r.adapter.Name(),
		Model:       r.config.Provider.Model,
		Message:     message,
		Reply:       reply,
		HistoryLen:  len(history),
		Streaming:   false,
		StartedAt:   startTime,
		CompletedAt: time.Now(),
		HTTPStatus:  fiber.StatusOK,
	})

	return c.JSON(chat.Reply{Reply: reply})
}
