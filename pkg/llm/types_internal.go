package llm

// CompletionResponse is the accumulated result of a streaming completion.
type CompletionResponse struct {
	ID           string         // Message ID (e.g. "chatcmpl-xxx")
	Model        string         // Actual model used (from response)
	Content      []ContentBlock // Accumulated content blocks (text, tool_use, thinking)
	ToolCalls    []ToolCall     // Extracted tool calls (OpenAI format, for reference)
	FinishReason string         // OpenAI finish_reason: "stop"|"tool_calls"|"length"
	StopReason   string         // Translated stop_reason: "end_turn"|"tool_use"|"max_tokens"
	Usage        TokenUsage     // Token usage
}

// Text concatenates all text content blocks, the final model_response
// turn's content when no tool call was made.
func (r *CompletionResponse) Text() string {
	var out string
	for _, b := range r.Content {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}
