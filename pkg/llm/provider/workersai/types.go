package workersai

// Wire types for the Cloudflare Workers AI REST API.

type workersAIRequest struct {
	Messages []workersAIMessage `json:"messages"`
	Stream   bool               `json:"stream,omitempty"`
}

type workersAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// workersAIResponse is the Cloudflare v4 API envelope for a non-streaming
// inference call.
type workersAIResponse struct {
	Result  workersAIResult  `json:"result"`
	Success bool             `json:"success"`
	Errors  []workersAIError `json:"errors"`
}

type workersAIResult struct {
	Response string `json:"response"`
}

type workersAIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// workersAIStreamChunk is one SSE payload line of a streaming inference call.
type workersAIStreamChunk struct {
	Response string `json:"response"`
}
