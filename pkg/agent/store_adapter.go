package agent

import (
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/tools"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// storeAdapter satisfies tools.SessionStore over a *session.Store,
// letting tools that mutate session state (TodoWrite, Delegate) reach the
// durable store without pkg/tools importing pkg/session directly.
type storeAdapter struct {
	store *session.Store
}

func newStoreAdapter(store *session.Store) *storeAdapter {
	return &storeAdapter{store: store}
}

func (a *storeAdapter) SetTodos(sessionID string, todos []tools.TodoItem) error {
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

func (a *storeAdapter) CreateChildSession(parentID, purpose, background string, roles []string) (string, error) {
	child, err := a.store.Create(purpose, background, roles, false, nil, parentID)
	if err != nil {
		return "", err
	}
	return child.SessionID, nil
}
