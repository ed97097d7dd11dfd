package tools

import (
	"context"
	"fmt"
)

// DelegateTool spawns a child session to handle a bounded sub-task,
// mirroring the teacher's subagent-spawn tool but backed by the
// orchestrator's own hierarchical session nesting (§4.B) rather than an
// OS subprocess: the child session is a sibling entry under the parent's
// directory, created through dispatch.Store, and its ID is handed back
// for the caller to resume against in a later turn.
type DelegateTool struct{}

func (d *DelegateTool) Name() string { return "Delegate" }

func (d *DelegateTool) Description() string {
	return `Delegates a bounded sub-task to a new child session.

Use Delegate when a sub-task is substantial enough to deserve its own
purpose, background, and role set, rather than being handled inline.
The child session starts with no turns of its own; its purpose and
background seed its first prompt. The child session ID returned by this
tool can be passed to a future invocation of this orchestrator
(--session <child-id>) to continue or inspect its work; Delegate itself
does not run the child's ReAct loop.`
}

func (d *DelegateTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"purpose": map[string]any{
				"type":        "string",
				"description": "Short statement of what the child session should accomplish",
			},
			"background": map[string]any{
				"type":        "string",
				"description": "Context the child session needs that isn't implied by its purpose",
			},
			"roles": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Role glob patterns the child session should load",
			},
		},
		"required": []string{"purpose"},
	}
}

func (d *DelegateTool) SideEffect() SideEffectType { return SideEffectSpawns }

func (d *DelegateTool) Execute(_ context.Context, dispatch Context, input map[string]any) (ToolOutput, error) {
	purpose, ok := input["purpose"].(string)
	if !ok || purpose == "" {
		return ToolOutput{Content: "Error: purpose is required", IsError: true}, nil
	}
	background, _ := input["background"].(string)

	var roles []string
	if raw, ok := input["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}

	if dispatch.Store == nil {
		return ToolOutput{Content: "Error: delegation not available (no session store configured)", IsError: true}, nil
	}

	childID, err := dispatch.Store.CreateChildSession(dispatch.SessionID, purpose, background, roles)
	if err != nil {
		return ToolOutput{Content: fmt.Sprintf("Error creating child session: %s", err), IsError: true}, nil
	}

	return ToolOutput{
		Content: fmt.Sprintf("Created child session %q for: %s", childID, purpose),
	}, nil
}
