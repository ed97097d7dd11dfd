package mcpserver

import (
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/tools"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// storeAdapter satisfies tools.SessionStore the same way pkg/agent's does
// — duplicated rather than shared, since the two packages reach the
// store from different processes (in-process ReAct loop vs. the
// out-of-process tool server) and neither should import the other just
// for this one small shim.
type storeAdapter struct {
	store *session.Store
}

func (a storeAdapter) SetTodos(sessionID string, todos []tools.TodoItem) error {
	converted := make([]types.TodoItem, len(todos))
	for i, t := range todos {
		converted[i] = types.TodoItem{Title: t.Title, Description: t.Description, Checked: t.Checked}
	}
	_, err := a.store.AtomicUpdate(sessionID, func(sess *types.Session) error {
		sess.Todos = converted
		return nil
	})
	return err
}

func (a storeAdapter) CreateChildSession(parentID, purpose, background string, roles []string) (string, error) {
	child, err := a.store.Create(purpose, background, roles, false, nil, parentID)
	if err != nil {
		return "", err
	}
	return child.SessionID, nil
}
