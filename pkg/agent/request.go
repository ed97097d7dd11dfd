package agent

import (
	"encoding/json"

	agentcontext "github.com/agentpipe/orchestrator/pkg/context"
	"github.com/agentpipe/orchestrator/pkg/llm"
	"github.com/agentpipe/orchestrator/pkg/prompt"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// tokenSummary computes the §4.G inputs for one iteration: the tokens
// already baked into the session's cache and the tokens sitting in
// history the cache hasn't absorbed yet, using the same
// estimate-per-turn-plus-overhead approach as pkg/context's compactor.
func (r *Runner) tokenSummary(sess *types.Session, fullHistory []types.Turn, estimator agentcontext.TokenEstimator) agentcontext.TokenCountSummary {
	cutoff := sess.CachedTurnCount
	if cutoff > len(fullHistory) {
		cutoff = len(fullHistory)
	}
	if cutoff < 0 {
		cutoff = 0
	}
	buffered := 0
	for _, t := range fullHistory[cutoff:] {
		buffered += estimator.Estimate(agentcontext.RenderTurnText(t)) + 4
	}
	return agentcontext.TokenCountSummary{
		CachedTokens:        sess.CachedContentTokenCount,
		CurrentPromptTokens: buffered + sess.CachedContentTokenCount,
		BufferedTokens:      buffered,
	}
}

// buildRequest renders an assembled Prompt into a chat-completion
// request: a system message carrying everything but the conversation,
// the conversation history, and a final user message for the current
// instruction (sent fresh every iteration, since the model must see it
// alongside whatever tool round-trips have accumulated in this run).
func (r *Runner) buildRequest(p prompt.Prompt, sess *types.Session) *llm.CompletionRequest {
	history := renderHistory(p.ConversationHistory.Turns)

	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: renderSystemPrompt(p)})
	messages = append(messages, history...)
	messages = append(messages, llm.ChatMessage{Role: "user", Content: p.CurrentTask.Instruction})

	req := &llm.CompletionRequest{
		Model:     r.cfg.Model,
		Messages:  messages,
		Tools:     r.cfg.Registry.ToolDefinitions(),
		MaxTokens: r.cfg.maxOutputTokens(),
	}
	if sess.Hyperparameters != nil {
		req.Temperature = sess.Hyperparameters.Temperature
		req.TopP = sess.Hyperparameters.TopP
	}
	return req
}

// parseToolArgs decodes a model's tool-call arguments JSON into a map,
// falling back to a raw passthrough when the model produced malformed
// JSON rather than failing the whole iteration over it.
func parseToolArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"_raw": raw}
	}
	return args
}
