package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
	"github.com/alfredmayaki/chatrelay/pkg/llm"
	"github.com/alfredmayaki/chatrelay/pkg/llm/provider/anthropic"
)

// capturedRequest records what the fake upstream received.
type capturedRequest struct {
	Header http.Header
	Body   map[string]any
}

var _ = Describe("Adapter", func() {
	var (
		upstream *httptest.Server
		captured *capturedRequest
		calls    atomic.Int32
	)

	AfterEach(func() {
		if upstream != nil {
			upstream.Close()
			upstream = nil
		}
		calls.Store(0)
	})

	Describe("Complete", func() {
		Context("with a successful upstream", func() {
			BeforeEach(func() {
				upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					calls.Add(1)
					body, _ := io.ReadAll(r.Body)
					captured = &capturedRequest{Header: r.Header.Clone()}
					Expect(json.Unmarshal(body, &captured.Body)).To(Succeed())

					w.Header().Set("Content-Type", "application/json")
					fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-20241022","stop_reason":"end_turn","content":[{"type":"text","text":"Hello "},{"type":"text","text":"there."}]}`)
				}))
			})

			It("concatenates the text blocks of the reply", func() {
				a := anthropic.New(anthropic.Config{APIKey: "sk-test", BaseURL: upstream.URL})

				text, err := a.Complete(context.Background(), "hi", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal("Hello there."))
			})

			It("sends the version header and credential", func() {
				a := anthropic.New(anthropic.Config{APIKey: "sk-test", BaseURL: upstream.URL})

				_, err := a.Complete(context.Background(), "hi", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(captured.Header.Get("x-api-key")).To(Equal("sk-test"))
				Expect(captured.Header.Get("anthropic-version")).To(Equal("2023-06-01"))
			})

			It("maps bot history turns to the assistant role, in order", func() {
				a := anthropic.New(anthropic.Config{APIKey: "sk-test", BaseURL: upstream.URL})

				history := []chat.Turn{
					{Role: chat.RoleUser, Text: "first"},
					{Role: chat.RoleBot, Text: "second"},
				}
				_, err := a.Complete(context.Background(), "third", history)
				Expect(err).NotTo(HaveOccurred())

				messages, ok := captured.Body["messages"].([]any)
				Expect(ok).To(BeTrue())
				Expect(messages).To(HaveLen(3))
				Expect(messages[0]).To(HaveKeyWithValue("role", "user"))
				Expect(messages[1]).To(HaveKeyWithValue("role", "assistant"))
				Expect(messages[2]).To(Equal(map[string]any{"role": "user", "content": "third"}))
			})
		})

		Context("with an empty candidate reply", func() {
			BeforeEach(func() {
				upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					fmt.Fprint(w, `{"type":"message","content":[],"stop_reason":"max_tokens"}`)
				}))
			})

			It("returns a placeholder naming the stop reason", func() {
				a := anthropic.New(anthropic.Config{APIKey: "sk-test", BaseURL: upstream.URL})

				text, err := a.Complete(context.Background(), "hi", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal("No response. Stop reason: max_tokens"))
			})
		})

		Context("with an upstream failure", func() {
			BeforeEach(func() {
				upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusServiceUnavailable)
					fmt.Fprint(w, "overloaded")
				}))
			})

			It("wraps the status code and body text", func() {
				a := anthropic.New(anthropic.Config{APIKey: "sk-test", BaseURL: upstream.URL})

				_, err := a.Complete(context.Background(), "hi", nil)
				var upErr *llm.UpstreamError
				Expect(errors.As(err, &upErr)).To(BeTrue())
				Expect(upErr.StatusCode).To(Equal(http.StatusServiceUnavailable))
				Expect(upErr.Body).To(Equal("overloaded"))
			})
		})

		Context("with a malformed upstream body", func() {
			BeforeEach(func() {
				upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					fmt.Fprint(w, "<html>not json</html>")
				}))
			})

			It("describes the raw body", func() {
				a := anthropic.New(anthropic.Config{APIKey: "sk-test", BaseURL: upstream.URL})

				_, err := a.Complete(context.Background(), "hi", nil)
				Expect(err).To(MatchError(ContainSubstring("not json")))
			})
		})

		It("fails fast without a network call when the API key is missing", func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
			}))
			a := anthropic.New(anthropic.Config{BaseURL: upstream.URL})

			_, err := a.Complete(context.Background(), "hi", nil)
			Expect(err).To(MatchError(llm.ErrMissingAPIKey))
			Expect(calls.Load()).To(BeZero())
		})

		It("rejects a version tag outside the allow-list before any network call", func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
			}))
			a := anthropic.New(anthropic.Config{APIKey: "sk-test", Version: "2026-01-01", BaseURL: upstream.URL})

			_, err := a.Complete(context.Background(), "hi", nil)
			Expect(err).To(MatchError(llm.ErrUnsupportedAPIVersion))
			Expect(calls.Load()).To(BeZero())
		})
	})

	Describe("Stream", func() {
		Context("with a successful SSE upstream", func() {
			BeforeEach(func() {
				upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "text/event-stream")
					fmt.Fprint(w,
						"event: message_start\ndata: {\"type\":\"message_start\"}\n\n"+
							"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hel\"}}\n\n"+
							"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"lo\"}}\n\n"+
							"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
				}))
			})

			It("yields only the text deltas, in order", func() {
				a := anthropic.New(anthropic.Config{APIKey: "sk-test", BaseURL: upstream.URL})

				stream, err := a.Stream(context.Background(), "hi", nil)
				Expect(err).NotTo(HaveOccurred())
				defer stream.Close()

				var deltas []string
				for {
					delta, err := stream.Next()
					if err == io.EOF {
						break
					}
					Expect(err).NotTo(HaveOccurred())
					deltas = append(deltas, delta)
				}
				Expect(deltas).To(Equal([]string{"Hel", "lo"}))
			})
		})

		It("fails fast for legacy models without attempting the call", func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
			}))
			a := anthropic.New(anthropic.Config{APIKey: "sk-test", Model: "claude-2.1", BaseURL: upstream.URL})

			_, err := a.Stream(context.Background(), "hi", nil)
			Expect(err).To(MatchError(llm.ErrStreamingNotSupported))
			Expect(calls.Load()).To(BeZero())
		})

		It("surfaces a failed establishment as an upstream error", func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, "rate limited")
			}))
			a := anthropic.New(anthropic.Config{APIKey: "sk-test", BaseURL: upstream.URL})

			_, err := a.Stream(context.Background(), "hi", nil)
			Expect(err).To(MatchError(ContainSubstring("429")))
			Expect(err).To(MatchError(ContainSubstring("rate limited")))
		})
	})
})
