package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentpipe/orchestrator/pkg/llm"
	"github.com/agentpipe/orchestrator/pkg/prompt"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// toolCallPayload is the shape a function_calling turn's Response field
// holds: the model's tool call round-tripped verbatim so conversation
// history can be replayed back to the model on the next iteration.
type toolCallPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// renderSystemPrompt flattens everything in a Prompt except the
// conversation history into the system message text.
func renderSystemPrompt(p prompt.Prompt) string {
	var sb strings.Builder
	if p.MainInstruction != "" {
		sb.WriteString(p.MainInstruction)
		sb.WriteString("\n\n")
	}
	if p.SessionGoal.Purpose != "" || p.SessionGoal.Background != "" {
		fmt.Fprintf(&sb, "Purpose: %s\nBackground: %s\n\n", p.SessionGoal.Purpose, p.SessionGoal.Background)
	}
	if p.Constraints.Language != "" {
		fmt.Fprintf(&sb, "Respond in: %s\n\n", p.Constraints.Language)
	}
	for _, def := range p.Roles.Definitions {
		sb.WriteString(def)
		sb.WriteString("\n\n")
	}
	for _, ref := range p.FileReferences {
		fmt.Fprintf(&sb, "--- file: %s ---\n%s\n\n", ref.Path, ref.Content)
	}
	for _, art := range p.Artifacts {
		fmt.Fprintf(&sb, "--- artifact: %s ---\n%s\n\n", art.Path, art.Contents)
	}
	if len(p.Todos) > 0 {
		sb.WriteString("Todos:\n")
		for _, td := range p.Todos {
			mark := " "
			if td.Checked {
				mark = "x"
			}
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", mark, td.Title, td.Description)
		}
		sb.WriteString("\n")
	}
	if p.Procedure != "" {
		fmt.Fprintf(&sb, "Procedure:\n%s\n\n", p.Procedure)
	}
	if p.ReasoningProcess != "" {
		sb.WriteString(p.ReasoningProcess)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Current datetime: %s\n", p.CurrentDatetime)
	return sb.String()
}

// syntheticToolCallID derives a stable tool_call_id from the position of
// its function_calling turn, used when the stored call carries no ID.
// ToolResponseTurn carries only the tool's name, not the model's call ID,
// since turns are a conversation record rather than a wire-exact replay
// log — so renderHistory gives a tool_response the ID decoded from the
// turn just before it, which is sound because a function_calling turn and
// its tool_response are always written as an adjacent pair
// (pkg/tools.Dispatcher.Execute).
func syntheticToolCallID(functionCallingIndex int) string {
	return fmt.Sprintf("call_%d", functionCallingIndex)
}

func decodeToolCall(raw string, functionCallingIndex int) (id, name, arguments string) {
	var payload toolCallPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil && payload.Name != "" {
		id = payload.ID
		if id == "" {
			id = syntheticToolCallID(functionCallingIndex)
		}
		return id, payload.Name, payload.Arguments
	}
	return syntheticToolCallID(functionCallingIndex), "", raw
}

// encodeToolCall marshals a model's tool call into the JSON stored
// verbatim in a function_calling turn's Response field.
func encodeToolCall(tc llm.ToolCall) string {
	id := tc.ID
	if id == "" {
		id = syntheticToolCallID(0)
	}
	data, _ := json.Marshal(toolCallPayload{ID: id, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	return string(data)
}

// renderHistory converts a chronological turn slice into chat messages.
func renderHistory(turnsSlice []types.Turn) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, 0, len(turnsSlice))
	for i, t := range turnsSlice {
		switch t.Type {
		case types.TurnUserTask:
			if t.UserTask != nil {
				msgs = append(msgs, llm.ChatMessage{Role: "user", Content: t.UserTask.Instruction})
			}
		case types.TurnModelResponse:
			if t.ModelResponse != nil {
				msgs = append(msgs, llm.ChatMessage{Role: "assistant", Content: t.ModelResponse.Content})
			}
		case types.TurnFunctionCalling:
			if t.FunctionCalling != nil {
				id, name, args := decodeToolCall(t.FunctionCalling.Response, i)
				msgs = append(msgs, llm.ChatMessage{
					Role: "assistant",
					ToolCalls: []llm.ToolCall{{
						ID:       id,
						Type:     "function",
						Function: llm.FunctionCall{Name: name, Arguments: args},
					}},
				})
			}
		case types.TurnToolResponse:
			if t.ToolResponse != nil {
				callID := syntheticToolCallID(i - 1)
				if i > 0 && turnsSlice[i-1].Type == types.TurnFunctionCalling && turnsSlice[i-1].FunctionCalling != nil {
					callID, _, _ = decodeToolCall(turnsSlice[i-1].FunctionCalling.Response, i-1)
				}
				msgs = append(msgs, llm.ChatMessage{
					Role:       "tool",
					Content:    t.ToolResponse.Response.Message,
					ToolCallID: callID,
					Name:       t.ToolResponse.Name,
				})
			}
		case types.TurnCompressedHistory:
			if t.CompressedHistory != nil {
				msgs = append(msgs, llm.ChatMessage{
					Role:    "user",
					Content: "[earlier conversation summarized]\n" + t.CompressedHistory.Content,
				})
			}
		}
	}
	return msgs
}
