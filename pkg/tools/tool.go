package tools

import (
	"context"
	"path/filepath"
	"strings"
)

// underProjectRoot reports whether abs is the project root itself or
// nested under it. An empty root means no containment constraint (the
// dispatcher didn't configure one), mirroring pkg/prompt's assembler.
func underProjectRoot(root, abs string) bool {
	if root == "" {
		return true
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// SideEffectType classifies a tool's impact on system state.
type SideEffectType int

const (
	SideEffectNone     SideEffectType = iota // FileRead, Glob, Grep
	SideEffectReadOnly                       // not returned by any built-in tool
	SideEffectMutating                       // Bash, FileWrite, FileEdit
	SideEffectNetwork                        // WebFetch, WebSearch
	SideEffectBlocking                       // AskUserQuestion
	SideEffectSpawns                         // Delegate tool
)

// ToolOutput is the result of a tool execution.
type ToolOutput struct {
	Content string // text content for the tool_response turn
	IsError bool   // when true, content is an error message
}

// Context carries the parameters the dispatcher injects into every tool
// call rather than exposing them as schema fields a model could guess
// wrong: the current session, the settings-derived project root, and a
// hook back into the session store for tools (TodoWrite, Delegate) that
// must mutate session state directly.
type Context struct {
	SessionID   string
	ProjectRoot string
	Store       SessionStore
}

// SessionStore is the minimal session-mutation surface tools need,
// satisfied by an adapter over *session.Store without pkg/tools
// importing pkg/session (which would create an import cycle through
// pkg/agent, which imports both).
type SessionStore interface {
	SetTodos(sessionID string, todos []TodoItem) error
	CreateChildSession(parentID, purpose, background string, roles []string) (string, error)
}

// TodoItem mirrors types.TodoItem without importing pkg/types, for the
// same reason as SessionStore above.
type TodoItem struct {
	Title       string
	Description string
	Checked     bool
}

// Tool is the interface every tool must implement. Discovery is a
// compile-time registry (§9): each Tool is registered explicitly rather
// than discovered by scanning a directory at runtime.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any // JSON Schema object for the tools array
	SideEffect() SideEffectType
	Execute(ctx context.Context, dispatch Context, input map[string]any) (ToolOutput, error)
}
