package agent

import (
	"context"
	"time"

	agentcontext "github.com/agentpipe/orchestrator/pkg/context"
)

// Compress summarizes the oldest turns of a session into a single
// compressed_history turn via the configured Compactor, grounded on the
// original implementation's standalone --compress operation: unlike the
// ReAct loop's per-iteration cache decision (§4.G), this permanently
// shrinks what's stored in session.Turns. A backup is written before the
// replacement is saved.
func (r *Runner) Compress(ctx context.Context, compactor *agentcontext.Compactor, sessionID string) error {
	sess, err := r.cfg.Store.Find(sessionID)
	if err != nil {
		return err
	}
	if err := r.cfg.Store.Backup(sess); err != nil {
		return err
	}

	limit := agentcontext.GetContextLimit(r.cfg.Model, r.cfg.Betas)
	compacted, err := compactor.Compact(ctx, sess.Turns, limit, time.Now())
	if err != nil {
		return err
	}
	sess.Turns = compacted
	return r.cfg.Store.Save(sess)
}
