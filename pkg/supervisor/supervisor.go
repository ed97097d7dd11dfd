// Package supervisor implements the §4.H process/session supervisor:
// one OS process per active session, enforced via the PID file the
// agent process itself writes (pkg/agent's Prepare step) and read back
// here to decide whether a session is already held.
package supervisor

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agentpipe/orchestrator/pkg/orchestrator"
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/transport"
)

const (
	stopGracePeriod = 5 * time.Second
	pollInterval    = 100 * time.Millisecond
)

// Supervisor spawns and tracks the one agent subprocess a session may
// have running at a time, reading the same processes directory
// pkg/agent.Config writes PID files into.
type Supervisor struct {
	ProcessesDir string
	Store        *session.Store
	Broadcaster  transport.EventBroadcaster

	// BinaryPath is the orchestrator CLI binary Start execs; Env is
	// appended to the spawned process's environment (os.Environ() plus
	// these).
	BinaryPath string
	Env        []string
}

func (s *Supervisor) broadcast(e transport.Event) {
	if s.Broadcaster != nil {
		s.Broadcaster.Publish(e)
	}
}

func (s *Supervisor) pidFilePath(sessionID string) string {
	return filepath.Join(s.ProcessesDir, filepath.FromSlash(sessionID)+".pid")
}

// IsRunning reports whether sessionID has a live process holding it. A
// PID file pointing at a process that no longer exists is treated as
// not-running and removed, since leaving it in place would permanently
// wedge that session behind §4.F's pre-loop stuck-pool guard for no
// process actually holding the lock.
func (s *Supervisor) IsRunning(sessionID string) (bool, int, error) {
	data, err := os.ReadFile(s.pidFilePath(sessionID))
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, nil
	}
	if processAlive(pid) {
		return true, pid, nil
	}
	_ = os.Remove(s.pidFilePath(sessionID))
	return false, pid, nil
}

// RunHandle lets the caller follow a spawned agent process's stdout
// event stream and wait for it to exit.
type RunHandle struct {
	Events <-chan json.RawMessage
	cmd    *exec.Cmd
	done   chan error
}

// Wait blocks until the process exits and returns its terminal error, if any.
func (h *RunHandle) Wait() error { return <-h.done }

// Start refuses to spawn a second process over a session that already
// has one, then runs the orchestrator binary against sessionID and
// instruction, decoding its stdout stream-json events line by line.
func (s *Supervisor) Start(ctx context.Context, sessionID, instruction string) (*RunHandle, error) {
	if running, pid, _ := s.IsRunning(sessionID); running {
		return nil, orchestrator.Validationf("session %s is already running (pid %d)", sessionID, pid)
	}

	cmd := exec.CommandContext(ctx, s.BinaryPath,
		"--session", sessionID,
		"--instruction", instruction,
		"--output-format", "stream-json",
	)
	cmd.Env = append(os.Environ(), s.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, orchestrator.Fatalf(err, "open stdout pipe for session %s", sessionID)
	}
	if err := cmd.Start(); err != nil {
		return nil, orchestrator.Fatalf(err, "spawn agent process for session %s", sessionID)
	}

	s.broadcast(transport.Event{SessionID: sessionID, Kind: transport.EventRunStarted})

	events := make(chan json.RawMessage, 64)
	done := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			events <- json.RawMessage(append([]byte(nil), line...))
		}
		close(events)

		err := cmd.Wait()
		s.broadcast(transport.Event{SessionID: sessionID, Kind: transport.EventRunStopped})
		done <- err
		close(done)
	}()

	return &RunHandle{Events: events, cmd: cmd, done: done}, nil
}

// Stop signals the process holding sessionID to terminate (SIGTERM, then
// SIGKILL after a grace period), then rolls back the session's pool
// before removing the PID file — so a terminated run never leaves a
// half-finished ReAct cycle sitting in turns.
func (s *Supervisor) Stop(sessionID string) error {
	running, pid, err := s.IsRunning(sessionID)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return orchestrator.Fatalf(err, "find process %d for session %s", pid, sessionID)
	}
	if err := proc.Signal(sigterm()); err != nil && processAlive(pid) {
		return orchestrator.Fatalf(err, "signal process %d for session %s", pid, sessionID)
	}

	deadline := time.Now().Add(stopGracePeriod)
	for processAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(pollInterval)
	}
	if processAlive(pid) {
		_ = proc.Kill()
	}

	if err := s.Store.Rollback(sessionID); err != nil {
		return err
	}
	_ = os.Remove(s.pidFilePath(sessionID))
	s.broadcast(transport.Event{SessionID: sessionID, Kind: transport.EventRunStopped})
	return nil
}
