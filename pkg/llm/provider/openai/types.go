package openai

// responsesRequest represents the Responses API request format.
type responsesRequest struct {
	Model  string         `json:"model"`
	Input  []responsesMsg `json:"input"`
	Stream bool           `json:"stream,omitempty"`
}

// responsesMsg is one input turn. Roles are "user" and "assistant".
type responsesMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responsesResponse represents the non-streaming Responses API response.
type responsesResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Output            []responsesOutputItem `json:"output"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
}

type responsesOutputItem struct {
	Type    string                   `json:"type"`
	Content []responsesOutputContent `json:"content"`
}

type responsesOutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// responsesStreamEvent represents one SSE data payload on the streaming
// response. Only response.output_text.delta events carry reply text.
type responsesStreamEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
}
