// Package worker provides an asynchronous worker pool for publishing
// completed chat turns to an eventstream backend.
//
// The pool decouples event publishing from the relay's HTTP hot path so the
// client never waits on the event backend.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alfredmayaki/chatrelay/pkg/eventstream"
	"github.com/alfredmayaki/chatrelay/pkg/eventstream/nop"
	"github.com/alfredmayaki/chatrelay/pkg/logger"
)

var (
	defaultNumWorkers     uint = 3
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// Job is one completed chat turn for the worker pool to publish.
type Job struct {
	Provider    string
	Model       string
	Message     string
	Reply       string
	HistoryLen  int
	ReplyChunks int
	Streaming   bool
	StartedAt   time.Time
	CompletedAt time.Time
	HTTPStatus  int
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives turn events. Nil disables publishing via the nop
	// publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger.
	Logger *slog.Logger
}

// Pool publishes turn events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job
// being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("turn event queued",
			"provider", job.Provider,
			"streaming", job.Streaming,
		)
		return true
	default:
		p.logger.Error("turn event not queued, queue full, job dropped",
			"provider", job.Provider,
			"streaming", job.Streaming,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
	if err := p.config.Publisher.Close(); err != nil {
		p.logger.Error("closing publisher", "error", err)
	}
}

// worker is the inner worker thread that continuously pulls jobs off the
// jobs queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

// processJob converts a Job into a turn event and publishes it.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()

	event := eventstream.NewTurnCompletedEvent(
		eventstream.EventSource{
			Provider: job.Provider,
			Model:    job.Model,
		},
		eventstream.TurnRequestMeta{
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
			DurationMs:  job.CompletedAt.Sub(job.StartedAt).Milliseconds(),
			Streaming:   job.Streaming,
			HTTPStatus:  job.HTTPStatus,
		},
		eventstream.TurnPayload{
			Message:     job.Message,
			Reply:       job.Reply,
			HistoryLen:  job.HistoryLen,
			ReplyChunks: job.ReplyChunks,
		},
	)

	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Error("async turn publish failed",
			"provider", job.Provider,
			"error", err,
		)
		return
	}

	p.logger.Info("turn event published",
		"event_id", event.EventID,
		"provider", job.Provider,
	)
}
