package relay

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
	"github.com/alfredmayaki/chatrelay/pkg/llm"
	"github.com/alfredmayaki/chatrelay/pkg/sse"
	"github.com/alfredmayaki/chatrelay/relay/worker"
)

// handleStreamingChat re-streams the adapter's upstream stream as normalized
// delta events. The outward stream always terminates with the sentinel frame
// exactly once, whether the turn streamed to completion or failed.
func (r *Relay) handleStreamingChat(c *fiber.Ctx, message string, history []chat.Turn, startTime time.Time) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache, no-transform")
	c.Set("Connection", "keep-alive")

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, but the pump runs
	// asynchronously in a separate goroutine and needs the upstream
	// connection to remain open.
	pr, pw := io.Pipe()
	go r.pumpStream(context.Background(), pw, message, history, startTime)

	// Set the pipe reader as the body stream with unknown size (-1), which
	// triggers chunked transfer encoding in fasthttp. pw.Write blocks until
	// fasthttp reads from the pipe and flushes to the TCP socket, giving
	// direct backpressure and true per-delta streaming.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// pumpStream drives the upstream stream into the pipe writer as normalized
// SSE frames. Establishment failures and mid-stream failures both surface as
// a single error event; no partial re-streaming is attempted on a failed
// connect.
func (r *Relay) pumpStream(ctx context.Context, pw *io.PipeWriter, message string, history []chat.Turn, startTime time.Time) {
	defer pw.Close()

	w := sse.NewWriter(pw)

	stream, err := r.adapter.Stream(ctx, message, history)
	if err != nil {
		r.logger.Error("upstream stream failed to establish",
			"provider", r.adapter.Name(),
			"error", err,
		)
		w.WriteEvent(chat.StreamEvent{Error: r.streamErrorText(err)})
		w.WriteDone()
		return
	}
	defer stream.Close()

	var reply strings.Builder
	chunks := 0

	for {
		delta, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.logger.Error("upstream stream failed mid-flight",
				"provider", r.adapter.Name(),
				"chunks", chunks,
				"error", err,
			)
			w.WriteEvent(chat.StreamEvent{Error: r.streamErrorText(err)})
			w.WriteDone()
			return
		}
		if delta == "" {
			continue
		}

		if err := w.WriteEvent(chat.StreamEvent{Delta: delta}); err != nil {
			// The downstream client went away. Distinct from an upstream
			// abort: nothing more can be delivered, so stop without a
			// sentinel.
			r.logger.Warn("downstream write aborted",
				"provider", r.adapter.Name(),
				"chunks", chunks,
				"error", err,
			)
			return
		}

		reply.WriteString(delta)
		chunks++
	}

	if err := w.WriteDone(); err != nil {
		// The client vanished right at end-of-stream. The sentinel never
		// reached it, so the turn is not recorded as completed.
		r.logger.Warn("downstream write aborted",
			"provider", r.adapter.Name(),
			"chunks", chunks,
			"error", err,
		)
		return
	}

	r.logger.Debug("streaming chat turn complete",
		"provider", r.adapter.Name(),
		"chunks", chunks,
		"duration", time.Since(startTime),
	)

	r.workerPool.Enqueue(worker.Job{
		Provider:    r.adapter.Name(),
		Model:       r.config.Provider.Model,
		Message:     message,
		Reply:       reply.String(),
		HistoryLen:  len(history),
		ReplyChunks: chunks,
		Streaming:   true,
		StartedAt:   startTime,
		CompletedAt: time.Now(),
		HTTPStatus:  fiber.StatusOK,
	})
}

// streamErrorText renders an upstream failure for the outward error event,
// marking upstream timeouts so they read differently from a downstream
// abort.
func (r *Relay) streamErrorText(err error) string {
	if llm.IsTimeout(err) {
		return fmt.Sprintf("%s API timed out", r.adapter.Name())
	}
	return fmt.Sprintf("Error calling %s API: %s", r.adapter.Name(), err)
}
