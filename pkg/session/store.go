// Package session implements the durable, file-backed session store:
// content-hashed session IDs, hierarchical parent/child nesting via path
// separators, crash-safe locked reads and writes, and checkpoint/rewind
// of workspace files touched by a session's tool calls.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentpipe/orchestrator/pkg/lockfile"
	"github.com/agentpipe/orchestrator/pkg/orchestrator"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// Store is the on-disk session repository rooted at baseDir.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// canonicalIdentity produces a stable JSON encoding of the fields that
// feed a session's content hash, grounded on the history_manager.py
// approach of hashing purpose/background/roles/msr plus a timestamp with
// sorted keys so the same inputs always hash the same way. Fields are
// declared in key order, since json.Marshal emits them in that order.
type canonicalIdentity struct {
	Background                string   `json:"background"`
	MultiStepReasoningEnabled bool     `json:"multi_step_reasoning_enabled"`
	Purpose                   string   `json:"purpose"`
	Roles                     []string `json:"roles"`
	Timestamp                 string   `json:"timestamp"`
}

func contentHash(purpose, background string, roles []string, msr bool, now time.Time) string {
	sortedRoles := append([]string(nil), roles...)
	sort.Strings(sortedRoles)

	id := canonicalIdentity{
		Purpose:                   purpose,
		Background:                background,
		Roles:                     sortedRoles,
		MultiStepReasoningEnabled: msr,
		Timestamp:                 now.Format(time.RFC3339Nano),
	}
	encoded, _ := json.Marshal(id)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// Create materializes a new session, optionally nested under parentID.
func (s *Store) Create(purpose, background string, roles []string, msr bool, hyper *types.Hyperparameters, parentID string) (*types.Session, error) {
	now := time.Now()
	hash := contentHash(purpose, background, roles, msr, now)

	id := hash
	if parentID != "" {
		if _, err := s.Find(parentID); err != nil {
			return nil, orchestrator.NotFoundf("parent session %q not found", parentID)
		}
		id = parentID + "/" + hash
	}

	sess := &types.Session{
		SessionID:                 id,
		CreatedAt:                 now,
		ParentID:                  parentID,
		Purpose:                   purpose,
		Background:                background,
		Roles:                     roles,
		MultiStepReasoningEnabled: msr,
		Hyperparameters:           hyper,
		Turns:                     []types.Turn{},
		Pools:                     []types.Turn{},
		References:                []types.Reference{},
		Artifacts:                 []string{},
	}

	if err := s.writeSessionFile(sess); err != nil {
		return nil, err
	}
	if err := s.updateIndex(id, now, purpose); err != nil {
		return nil, err
	}
	return sess, nil
}

// Find reads a session by ID, applying the migration pass. Returns a
// NotFound error if no file exists.
func (s *Store) Find(id string) (*types.Session, error) {
	path := s.sessionPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errSessionNotFound(id)
		}
		return nil, orchestrator.Fatalf(err, "read session %s", id)
	}
	sess, err := decodeSession(data)
	if err != nil {
		return nil, orchestrator.Fatalf(err, "decode session %s", id)
	}
	return sess, nil
}

func (s *Store) writeSessionFile(sess *types.Session) error {
	path := s.sessionPath(sess.SessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return orchestrator.Fatalf(err, "create session directory for %s", sess.SessionID)
	}
	return lockfile.Write(s.lockPath(sess.SessionID), sess)
}

// Save overwrites the session file and refreshes its index entry.
func (s *Store) Save(sess *types.Session) error {
	if err := s.writeSessionFile(sess); err != nil {
		return err
	}
	return s.updateIndex(sess.SessionID, sess.CreatedAt, sess.Purpose)
}

// Delete removes a session's file, its backups, its index entries, and
// the index entries of every descendant. Directory pruning is
// best-effort: errors there are non-fatal.
func (s *Store) Delete(id string) error {
	path := s.sessionPath(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return orchestrator.Fatalf(err, "delete session %s", id)
	}
	_ = os.Remove(path + ".lock")

	sum := sha256.Sum256([]byte(id))
	prefix := hex.EncodeToString(sum[:]) + "-"
	if entries, err := os.ReadDir(s.backupsDir()); err == nil {
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), prefix) {
				_ = os.Remove(filepath.Join(s.backupsDir(), e.Name()))
			}
		}
	}

	if err := s.removeFromIndex(id); err != nil {
		return err
	}

	// best-effort: remove now-empty ancestor directories
	dir := filepath.Dir(path)
	for dir != s.baseDir && dir != "." && dir != string(filepath.Separator) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Backup writes a timestamped snapshot of sess into backups/.
func (s *Store) Backup(sess *types.Session) error {
	if err := os.MkdirAll(s.backupsDir(), 0o755); err != nil {
		return orchestrator.Fatalf(err, "create backups dir")
	}
	sum := sha256.Sum256([]byte(sess.SessionID))
	name := fmt.Sprintf("%s-%d.json", hex.EncodeToString(sum[:]), time.Now().UnixNano())
	path := filepath.Join(s.backupsDir(), name)
	return lockfile.Write(path+".lock", sess)
}

// Fork creates a sibling session (same parent as source) truncated at
// forkIndex, which must point at a model_response turn. Token counters
// reset to zero on the fork.
func (s *Store) Fork(sourceID string, forkIndex int) (*types.Session, error) {
	src, err := s.Find(sourceID)
	if err != nil {
		return nil, err
	}
	if forkIndex < 0 || forkIndex >= len(src.Turns) {
		return nil, orchestrator.Validationf("fork index %d out of range [0,%d)", forkIndex, len(src.Turns))
	}
	if src.Turns[forkIndex].Type != types.TurnModelResponse {
		return nil, orchestrator.Validationf("fork index %d is not a model_response turn", forkIndex)
	}

	now := time.Now()
	hash := contentHash(src.Purpose, src.Background, src.Roles, src.MultiStepReasoningEnabled, now)

	parentID := src.ParentID
	id := hash
	if parentID != "" {
		id = parentID + "/" + hash
	}

	forked := &types.Session{
		SessionID:                 id,
		CreatedAt:                 now,
		ParentID:                  parentID,
		Purpose:                   "Fork of: " + src.Purpose,
		Background:                src.Background,
		Roles:                     append([]string(nil), src.Roles...),
		Procedure:                 src.Procedure,
		MultiStepReasoningEnabled: src.MultiStepReasoningEnabled,
		Hyperparameters:           src.Hyperparameters,
		Turns:                     append([]types.Turn(nil), src.Turns[:forkIndex+1]...),
		Pools:                     []types.Turn{},
		References:                append([]types.Reference(nil), src.References...),
		Artifacts:                 append([]string(nil), src.Artifacts...),
	}

	if err := s.writeSessionFile(forked); err != nil {
		return nil, err
	}
	if err := s.updateIndex(id, now, forked.Purpose); err != nil {
		return nil, err
	}
	return forked, nil
}

// Mutator edits a session in memory before it is saved back by
// AtomicUpdate.
type Mutator func(sess *types.Session) error

// AtomicUpdate loads id, applies mutate, and saves the result. It is the
// entry point for every internal session edit so each one goes through
// Find → mutate → Save without the caller having to manage persistence.
func (s *Store) AtomicUpdate(id string, mutate Mutator) (*types.Session, error) {
	sess, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(sess); err != nil {
		return nil, err
	}
	if err := s.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Rollback clears a session's pool without touching its committed turns,
// the supervisor's recovery step (§4.H) for a process that terminated
// mid-ReAct-cycle: whatever that process had pooled never reached turns,
// so dropping it is enough to make the session look as if the run never
// started.
func (s *Store) Rollback(id string) error {
	_, err := s.AtomicUpdate(id, func(sess *types.Session) error {
		sess.Pools = []types.Turn{}
		return nil
	})
	return err
}
