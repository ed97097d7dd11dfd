package session

import "github.com/agentpipe/orchestrator/pkg/orchestrator"

// errSessionNotFound is returned by Find and AtomicUpdate when the
// requested session ID has no on-disk file.
func errSessionNotFound(id string) error {
	return orchestrator.NotFoundf("session %q not found", id)
}

func errCheckpointMissing(turnIndex int) error {
	return orchestrator.NotFoundf("checkpoint for turn %d not found", turnIndex)
}
