package gemini

// geminiRequest represents the generateContent request format.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// geminiContent is one conversation turn in Gemini's format. Roles are
// "user" and "model".
type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse represents both the non-streaming response and a single
// SSE chunk of the streaming response; Gemini uses the same candidate shape
// for both.
type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}
