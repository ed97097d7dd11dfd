package session

import "time"

// CleanupConfig configures session cleanup behavior.
type CleanupConfig struct {
	RetentionDays int // sessions older than this are deleted (default: 30)
}

// CleanupStats reports the outcome of a cleanup run.
type CleanupStats struct {
	SessionsDeleted int
}

// Cleanup walks the index and deletes root sessions (no parent, i.e. no
// "/" in the ID) whose last_updated_at falls outside the retention
// window. Deleting a root session also drops its children's index
// entries via Store.Delete's prefix sweep; the children's session files
// are not removed.
func (s *Store) Cleanup(config CleanupConfig) (CleanupStats, error) {
	retentionDays := config.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := s.List()
	if err != nil {
		return CleanupStats{}, err
	}

	var stats CleanupStats
	for id, entry := range entries {
		if isChildSessionID(id) {
			continue // deleted when its root is deleted
		}
		lastActive := entry.LastUpdatedAt
		if lastActive.IsZero() {
			lastActive = entry.CreatedAt
		}
		if lastActive.Before(cutoff) {
			if err := s.Delete(id); err == nil {
				stats.SessionsDeleted++
			}
		}
	}
	return stats, nil
}

func isChildSessionID(id string) bool {
	for _, r := range id {
		if r == '/' {
			return true
		}
	}
	return false
}
