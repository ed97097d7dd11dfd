package tools

import (
	"context"
	"fmt"
	"strings"
)

// TodoWriteTool replaces the session's todo list. Unlike most tools it is
// side-effecting on session state rather than the filesystem: it writes
// through dispatch.Store rather than returning data for the caller to
// persist, since TodoItem{title,description,checked} lives on the
// Session itself (§3), not in this tool's own memory.
type TodoWriteTool struct{}

func (t *TodoWriteTool) Name() string { return "TodoWrite" }

func (t *TodoWriteTool) Description() string {
	return "Creates or replaces the session's structured todo list for tracking task progress."
}

func (t *TodoWriteTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{
							"type":        "string",
							"description": "Short imperative title for the todo",
						},
						"description": map[string]any{
							"type":        "string",
							"description": "Additional detail for the todo",
						},
						"checked": map[string]any{
							"type":        "boolean",
							"description": "Whether the todo is complete",
						},
					},
					"required": []string{"title"},
				},
				"description": "The full todo list (replaces existing)",
			},
		},
		"required": []string{"todos"},
	}
}

func (t *TodoWriteTool) SideEffect() SideEffectType { return SideEffectMutating }

func (t *TodoWriteTool) Execute(_ context.Context, dispatch Context, input map[string]any) (ToolOutput, error) {
	rawTodos, ok := input["todos"].([]any)
	if !ok {
		return ToolOutput{Content: "Error: todos is required and must be an array", IsError: true}, nil
	}

	items := make([]TodoItem, 0, len(rawTodos))
	for i, raw := range rawTodos {
		obj, ok := raw.(map[string]any)
		if !ok {
			return ToolOutput{Content: fmt.Sprintf("Error: todos[%d] must be an object", i), IsError: true}, nil
		}

		title, _ := obj["title"].(string)
		if title == "" {
			return ToolOutput{Content: fmt.Sprintf("Error: todos[%d].title is required", i), IsError: true}, nil
		}
		description, _ := obj["description"].(string)
		checked, _ := obj["checked"].(bool)

		items = append(items, TodoItem{Title: title, Description: description, Checked: checked})
	}

	if dispatch.Store != nil {
		if err := dispatch.Store.SetTodos(dispatch.SessionID, items); err != nil {
			return ToolOutput{Content: fmt.Sprintf("Error: %s", err), IsError: true}, nil
		}
	}

	return ToolOutput{Content: formatTodoList(items)}, nil
}

func formatTodoList(items []TodoItem) string {
	if len(items) == 0 {
		return "Todo list cleared."
	}
	var b strings.Builder
	b.WriteString("Todo list updated:\n")
	for i, item := range items {
		marker := "[ ]"
		if item.Checked {
			marker = "[x]"
		}
		fmt.Fprintf(&b, "%d. %s %s", i+1, marker, item.Title)
		if item.Description != "" {
			fmt.Fprintf(&b, " — %s", item.Description)
		}
		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
