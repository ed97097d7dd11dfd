package llm

// ContentBlock is one piece of an accumulated completion response:
// a thinking block, a text block, or a tool_use block, in stream order.
type ContentBlock struct {
	Type     string         `json:"type"` // "thinking"|"text"|"tool_use"
	Text     string         `json:"text,omitempty"`
	Thinking string         `json:"thinking,omitempty"`
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Input    map[string]any `json:"input,omitempty"`
}

// TokenUsage is the token accounting for one completion, independent of
// the wire Usage struct's OpenAI field naming.
type TokenUsage struct {
	InputTokens              int
	OutputTokens             int
	CacheReadInputTokens     int
	CacheCreationInputTokens int
}

// Total returns the sum of billed input and output tokens, excluding
// cache-read tokens (billed at a reduced rate by most providers).
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
