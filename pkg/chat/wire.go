package chat

// Request is the wire entity POSTed to the relay's /chat endpoint.
// It is constructed fresh per submission and never mutated after send.
type Request struct {
	Message string `json:"message"`
	Stream  bool   `json:"stream"`
	History []Turn `json:"history"`
}

// Reply is the non-streaming wire reply. The relay always answers with this
// shape, including for server-side failures, so the client renders every
// outcome through one path.
type Reply struct {
	Reply string `json:"reply"`
}

// StreamEvent is one event on the normalized outward SSE stream: either an
// incremental text delta or a single error replacing the stream.
type StreamEvent struct {
	Delta string `json:"delta,omitempty"`
	Error string `json:"error,omitempty"`
}

// DoneSentinel is the literal terminal marker written as plain SSE data
// after the last event, so clients detect end-of-stream without JSON-parsing
// a special value.
const DoneSentinel = "[DONE]"
