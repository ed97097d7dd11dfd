package agent

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/agentpipe/orchestrator/pkg/orchestrator"
)

// pidFilePath returns the path of the PID file a running process writes
// for sessionID so the supervisor (§4.H) can tell a session is held.
func (c *Config) pidFilePath(sessionID string) string {
	return filepath.Join(c.ProcessesDir, filepath.FromSlash(sessionID)+".pid")
}

func (c *Config) writePIDFile(sessionID string) error {
	if c.ProcessesDir == "" {
		return nil
	}
	path := c.pidFilePath(sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return orchestrator.Fatalf(err, "create processes directory for %s", sessionID)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (c *Config) removePIDFile(sessionID string) {
	if c.ProcessesDir == "" {
		return
	}
	_ = os.Remove(c.pidFilePath(sessionID))
}
