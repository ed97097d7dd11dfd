package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentpipe/orchestrator/pkg/orchestrator"
)

// CheckpointManifest records which files were snapshotted at a checkpoint.
type CheckpointManifest struct {
	TurnIndex int            `json:"turn_index"`
	CreatedAt time.Time      `json:"created_at"`
	Files     []FileSnapshot `json:"files"`
}

// FileSnapshot records the state of a single file at checkpoint time.
type FileSnapshot struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Hash   string `json:"hash,omitempty"`
	Size   int    `json:"size,omitempty"`
}

// RewindResult reports what a RewindFiles call changed or would change.
type RewindResult struct {
	CanRewind    bool
	FilesChanged []string
	Insertions   int
	Deletions    int
	Error        string
}

func (s *Store) checkpointsDir(sessionID string) string {
	return filepath.Join(filepath.Dir(s.sessionPath(sessionID)), "checkpoints", fmt.Sprint(sessionIDStem(sessionID)))
}

// sessionIDStem strips any parent prefix so checkpoint directories for a
// child session don't collide with its parent's.
func sessionIDStem(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '/' {
			return id[i+1:]
		}
	}
	return id
}

func (s *Store) checkpointDir(sessionID string, turnIndex int) string {
	return filepath.Join(s.checkpointsDir(sessionID), fmt.Sprint(turnIndex))
}

func (s *Store) checkpointFilesDir(sessionID string, turnIndex int) string {
	return filepath.Join(s.checkpointDir(sessionID, turnIndex), "files")
}

func (s *Store) checkpointManifestPath(sessionID string, turnIndex int) string {
	return filepath.Join(s.checkpointDir(sessionID, turnIndex), "manifest.json")
}

// CreateCheckpoint snapshots filePaths' current contents, content-addressed
// by sha256, into checkpoints/<last segment of sessionID>/<turnIndex>/files/
// in the directory that holds sessionID's file.
func (s *Store) CreateCheckpoint(sessionID string, turnIndex int, filePaths []string) error {
	filesDir := s.checkpointFilesDir(sessionID, turnIndex)
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return orchestrator.Fatalf(err, "create checkpoint dir")
	}

	manifest := CheckpointManifest{TurnIndex: turnIndex, CreatedAt: time.Now()}

	for _, path := range filePaths {
		snap := FileSnapshot{Path: path}

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				manifest.Files = append(manifest.Files, snap)
				continue
			}
			return orchestrator.Fatalf(err, "read file %q for checkpoint", path)
		}

		snap.Exists = true
		snap.Size = len(data)
		hash := sha256.Sum256(data)
		snap.Hash = hex.EncodeToString(hash[:])

		hashPath := filepath.Join(filesDir, snap.Hash)
		if _, err := os.Stat(hashPath); os.IsNotExist(err) {
			if err := os.WriteFile(hashPath, data, 0o644); err != nil {
				return orchestrator.Fatalf(err, "write checkpoint content for %q", path)
			}
		}
		manifest.Files = append(manifest.Files, snap)
	}

	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return orchestrator.Fatalf(err, "marshal checkpoint manifest")
	}
	return os.WriteFile(s.checkpointManifestPath(sessionID, turnIndex), encoded, 0o644)
}

// RewindFiles restores files captured at the given checkpoint. With
// dryRun, it reports what would change without touching the filesystem.
func (s *Store) RewindFiles(sessionID string, turnIndex int, dryRun bool) (*RewindResult, error) {
	manifestData, err := os.ReadFile(s.checkpointManifestPath(sessionID, turnIndex))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errCheckpointMissing(turnIndex)
		}
		return nil, orchestrator.Fatalf(err, "read checkpoint manifest")
	}

	var manifest CheckpointManifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, orchestrator.Fatalf(err, "parse checkpoint manifest")
	}

	result := &RewindResult{CanRewind: true}
	filesDir := s.checkpointFilesDir(sessionID, turnIndex)

	for _, snap := range manifest.Files {
		if !snap.Exists {
			if _, err := os.Stat(snap.Path); err == nil {
				result.FilesChanged = append(result.FilesChanged, snap.Path)
				result.Deletions++
				if !dryRun {
					if err := os.Remove(snap.Path); err != nil {
						result.Error = fmt.Sprintf("failed to delete %q: %s", snap.Path, err)
						result.CanRewind = false
					}
				}
			}
			continue
		}

		currentData, readErr := os.ReadFile(snap.Path)
		currentExists := readErr == nil
		if currentExists {
			currentHash := sha256.Sum256(currentData)
			if hex.EncodeToString(currentHash[:]) == snap.Hash {
				continue
			}
		}

		result.FilesChanged = append(result.FilesChanged, snap.Path)
		result.Insertions++

		if !dryRun {
			snapData, err := os.ReadFile(filepath.Join(filesDir, snap.Hash))
			if err != nil {
				result.Error = fmt.Sprintf("failed to read checkpoint content for %q: %s", snap.Path, err)
				result.CanRewind = false
				continue
			}
			if err := os.MkdirAll(filepath.Dir(snap.Path), 0o755); err != nil {
				result.Error = fmt.Sprintf("failed to create dir for %q: %s", snap.Path, err)
				result.CanRewind = false
				continue
			}
			if err := os.WriteFile(snap.Path, snapData, 0o644); err != nil {
				result.Error = fmt.Sprintf("failed to restore %q: %s", snap.Path, err)
				result.CanRewind = false
			}
		}
	}

	return result, nil
}
