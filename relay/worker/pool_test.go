package worker

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alfredmayaki/chatrelay/pkg/eventstream"
)

// spyPublisher records every published event for later assertion.
type spyPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnCompletedEvent
	closed bool
}

func (s *spyPublisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *spyPublisher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *spyPublisher) published() []*eventstream.TurnCompletedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*eventstream.TurnCompletedEvent(nil), s.events...)
}

var _ = Describe("Worker Pool", func() {
	var spy *spyPublisher

	newTestPool := func() *Pool {
		wp, err := NewPool(&Config{Publisher: spy})
		Expect(err).NotTo(HaveOccurred())
		return wp
	}

	BeforeEach(func() {
		spy = &spyPublisher{}
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			wp := newTestPool()
			ok := wp.Enqueue(Job{Provider: "anthropic", Message: "hello", Reply: "hi"})
			Expect(ok).To(BeTrue())
			wp.Close()
		})

		It("publishes a turn event for every enqueued job", func() {
			wp := newTestPool()
			started := time.Now().Add(-2 * time.Second)
			completed := time.Now()

			wp.Enqueue(Job{
				Provider:    "anthropic",
				Model:       "claude-3-5-sonnet-20241022",
				Message:     "hello",
				Reply:       "hi there",
				HistoryLen:  4,
				ReplyChunks: 3,
				Streaming:   true,
				StartedAt:   started,
				CompletedAt: completed,
				HTTPStatus:  200,
			})
			wp.Close()

			events := spy.published()
			Expect(events).To(HaveLen(1))

			event := events[0]
			Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
			Expect(event.EventType).To(Equal(eventstream.EventTypeTurnCompleted))
			Expect(event.EventID).NotTo(BeEmpty())
			Expect(event.Source.Provider).To(Equal("anthropic"))
			Expect(event.Source.Model).To(Equal("claude-3-5-sonnet-20241022"))
			Expect(event.RequestMeta.Streaming).To(BeTrue())
			Expect(event.RequestMeta.HTTPStatus).To(Equal(200))
			Expect(event.RequestMeta.DurationMs).To(BeNumerically("~", 2000, 100))
			Expect(event.Turn.Message).To(Equal("hello"))
			Expect(event.Turn.Reply).To(Equal("hi there"))
			Expect(event.Turn.HistoryLen).To(Equal(4))
			Expect(event.Turn.ReplyChunks).To(Equal(3))
		})

		It("drains all enqueued jobs before Close returns", func() {
			wp := newTestPool()
			for i := range 10 {
				wp.Enqueue(Job{Provider: "gemini", Message: "msg", ReplyChunks: i})
			}
			wp.Close()

			Expect(spy.published()).To(HaveLen(10))
		})
	})

	Describe("NewPool", func() {
		It("defaults to the nop publisher when none is configured", func() {
			wp, err := NewPool(&Config{})
			Expect(err).NotTo(HaveOccurred())

			wp.Enqueue(Job{Provider: "openai"})
			wp.Close()
		})
	})

	Describe("Close", func() {
		It("closes the publisher after draining", func() {
			wp := newTestPool()
			wp.Close()
			Expect(spy.closed).To(BeTrue())
		})
	})
})
