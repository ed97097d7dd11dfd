package session

import (
	"encoding/json"
	"time"

	"github.com/agentpipe/orchestrator/pkg/lockfile"
	"github.com/agentpipe/orchestrator/pkg/types"
)

func (s *Store) updateIndex(id string, createdAt time.Time, purpose string) error {
	path := s.indexPath()
	_, err := lockfile.ReadModifyWrite(path, *types.NewSessionIndex(), func(idx *types.SessionIndex) struct{} {
		if idx.Sessions == nil {
			idx.Sessions = make(map[string]types.IndexEntry)
		}
		entry := idx.Sessions[id]
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = createdAt
		}
		entry.LastUpdatedAt = time.Now()
		if purpose != "" {
			entry.Purpose = purpose
		}
		idx.Sessions[id] = entry
		return struct{}{}
	})
	return err
}

func (s *Store) removeFromIndex(id string) error {
	path := s.indexPath()
	_, err := lockfile.ReadModifyWrite(path, *types.NewSessionIndex(), func(idx *types.SessionIndex) struct{} {
		if idx.Sessions == nil {
			return struct{}{}
		}
		for sid := range idx.Sessions {
			if isChildOf(sid, id) {
				delete(idx.Sessions, sid)
			}
		}
		return struct{}{}
	})
	return err
}

// List returns every indexed session, migrating the legacy
// "last_updated" key if it is still present on disk — the same
// raw-map-then-typed-unmarshal two-pass decodeSession already uses for
// sessions, since json.Unmarshal alone would silently zero out
// LastUpdatedAt for any entry still carrying the old key.
func (s *Store) List() (map[string]types.IndexEntry, error) {
	var raw struct {
		Sessions map[string]map[string]any `json:"sessions"`
	}
	ok, err := lockfile.Read(s.indexPath(), &raw)
	if err != nil {
		return nil, err
	}
	if !ok || raw.Sessions == nil {
		return map[string]types.IndexEntry{}, nil
	}

	for id, entry := range raw.Sessions {
		migrateIndexEntryJSON(entry)
		raw.Sessions[id] = entry
	}

	patched, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var idx types.SessionIndex
	if err := json.Unmarshal(patched, &idx); err != nil {
		return nil, err
	}
	if idx.Sessions == nil {
		return map[string]types.IndexEntry{}, nil
	}
	return idx.Sessions, nil
}
