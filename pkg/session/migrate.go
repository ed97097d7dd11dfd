package session

import (
	"encoding/json"

	"github.com/agentpipe/orchestrator/pkg/types"
)

// migrateSessionJSON patches a decoded-as-generic-map session document into
// the current schema before the final typed unmarshal: it coerces a null
// multi_step_reasoning_enabled to false and promotes raw string todos and
// references into their struct form. No session-level field is renamed
// (decodeSession below only runs this pass); this function only fixes
// shapes json.Unmarshal's zero-value defaulting can't.
func migrateSessionJSON(raw map[string]any) {
	if v, ok := raw["multi_step_reasoning_enabled"]; ok && v == nil {
		raw["multi_step_reasoning_enabled"] = false
	}

	if todos, ok := raw["todos"].([]any); ok {
		for i, item := range todos {
			if s, ok := item.(string); ok {
				todos[i] = map[string]any{"title": s, "description": "", "checked": false}
			}
		}
		raw["todos"] = todos
	}

	if refs, ok := raw["references"].([]any); ok {
		for i, item := range refs {
			if s, ok := item.(string); ok {
				refs[i] = map[string]any{"path": s, "ttl": nil, "disabled": false, "persist": false}
			}
		}
		raw["references"] = refs
	}
}

// decodeSession decodes raw session bytes, applying the migration pass
// before the strict typed unmarshal.
func decodeSession(data []byte) (*types.Session, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	migrateSessionJSON(raw)

	patched, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var sess types.Session
	if err := json.Unmarshal(patched, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// migrateIndexEntryJSON renames the legacy "last_updated" key to
// "last_updated_at" if the new key is absent.
func migrateIndexEntryJSON(raw map[string]any) {
	if _, hasNew := raw["last_updated_at"]; !hasNew {
		if old, ok := raw["last_updated"]; ok {
			raw["last_updated_at"] = old
		}
	}
}
