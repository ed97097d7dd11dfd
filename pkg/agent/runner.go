package agent

import (
	"context"
	"time"

	agentcontext "github.com/agentpipe/orchestrator/pkg/context"
	"github.com/agentpipe/orchestrator/pkg/orchestrator"
	"github.com/agentpipe/orchestrator/pkg/tools"
	"github.com/agentpipe/orchestrator/pkg/turns"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// Runner drives one session through one instruction via the §4.F ReAct
// loop: Prepare (load or create the session, seed the pool with the
// incoming instruction), Loop (decrement reference TTLs, expire stale
// tool responses, consult the cache manager, assemble the prompt, call
// the LM, dispatch any tool call, repeat), Guard (abort and roll back a
// runaway pool), Commit (merge the pool into turns in one save), Release
// (drop the process's PID file).
type Runner struct {
	cfg *Config
}

func NewRunner(cfg *Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes one instruction against opts.SessionID (or a freshly
// created session when SessionID is empty) and returns the session as
// committed. On abort — cancellation, context overflow or a runaway
// pool — the pool is discarded and the session returned unsaved, matching
// §4.F's Rollback: nothing pooled this run ever reaches turns. The
// returned session still carries the loop's in-memory updates (reference
// TTLs, cache name and cached turn count).
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*types.Session, error) {
	sess, err := r.prepare(opts)
	if err != nil {
		return nil, err
	}
	log := r.cfg.logger().With().Str("component", "agent").Str("session_id", sess.SessionID).Logger()

	pool := turns.NewCollection(append([]types.Turn(nil), sess.Pools...))

	// Mirrors takt.py's pre-loop guard: a session already stuck at the
	// pool-depth limit from an earlier crash is rejected outright rather
	// than being allowed to grow further.
	if len(pool.Turns()) >= r.cfg.poolDepthGuard() {
		log.Warn().Int("pool_depth", len(pool.Turns())).Msg("session pool already at guard limit, refusing to run")
		return nil, orchestrator.Validationf(
			"session %q has a stuck pool of %d turns (guard=%d); rewind or clear it before continuing",
			sess.SessionID, len(pool.Turns()), r.cfg.poolDepthGuard())
	}

	if err := r.cfg.writePIDFile(sess.SessionID); err != nil {
		return nil, err
	}
	defer r.cfg.removePIDFile(sess.SessionID)

	pool.Add(types.NewUserTask(opts.Instruction, time.Now()))

	estimator := &agentcontext.SimpleEstimator{}
	touchedFiles := map[string]struct{}{}
	var cumulativeTokens, cumulativeCached int
	aborted := false
	var abortErr error
	dispatchCtx := tools.Context{
		SessionID:   sess.SessionID,
		ProjectRoot: r.cfg.ProjectRoot,
		Store:       newStoreAdapter(r.cfg.Store),
	}

loop:
	for {
		select {
		case <-ctx.Done():
			log.Warn().Msg("run cancelled, rolling back pool")
			aborted = true
			break loop
		default:
		}

		refs := turns.NewReferenceCollection(sess.References, r.cfg.referenceDefaultTTL())
		refs.DecrementAllTtl()
		sess.References = refs.Entries()

		turns.NewCollection(sess.Turns).ExpireOldToolResponses(r.cfg.toolResponseExpiration())

		fullHistory := append(append([]types.Turn(nil), sess.Turns...), pool.Turns()...)
		summary := r.tokenSummary(sess, fullHistory, estimator)
		cacheName, cachedTurnCount, buffered := r.cfg.CacheManager.UpdateIfNeeded(ctx, sess, fullHistory, summary, r.cfg.cacheThreshold())
		sess.CacheName = cacheName
		sess.CachedTurnCount = cachedTurnCount

		viewSess := *sess
		viewSess.Turns = buffered
		p := r.cfg.Assembler.Assemble(&viewSess, opts.Instruction)

		req := r.buildRequest(p, sess)

		budget := agentcontext.TokenBudget{
			ContextLimit:  r.cfg.contextLimit(),
			MessageTkns:   estimator.EstimateMessages(req.Messages),
			MaxOutputTkns: r.cfg.maxOutputTokens(),
		}
		if budget.IsOverflow() {
			log.Warn().Int("message_tokens", budget.MessageTkns).Int("context_limit", budget.ContextLimit).
				Msg("rendered prompt exceeds context limit, aborting and rolling back")
			abortErr = orchestrator.ContextOverflowf(
				"session %s: rendered prompt (%d tokens) exceeds context limit of %d",
				sess.SessionID, budget.MessageTkns+budget.MaxOutputTkns, budget.ContextLimit)
			aborted = true
			break loop
		}

		stream, err := r.cfg.LLMClient.Complete(ctx, req)
		if err != nil {
			return nil, orchestrator.LMTransportf(err, "complete session %s", sess.SessionID)
		}
		resp, err := stream.Accumulate()
		if err != nil {
			return nil, orchestrator.LMTransportf(err, "accumulate completion for session %s", sess.SessionID)
		}

		cumulativeTokens += resp.Usage.Total()
		cumulativeCached += resp.Usage.CacheReadInputTokens

		if len(resp.ToolCalls) == 0 {
			pool.Add(types.NewModelResponse(resp.Text(), time.Now()))
			break loop
		}

		for _, tc := range resp.ToolCalls {
			args := parseToolArgs(tc.Function.Arguments)
			collectTouchedFile(tc.Function.Name, args, touchedFiles)
			r.cfg.Dispatcher.Execute(ctx, pool, dispatchCtx, tc.Function.Name, encodeToolCall(tc), args)
		}

		// TodoWrite persists through dispatch.Store immediately; pull the
		// change back into the in-memory session so Commit's final Save
		// doesn't clobber it with the stale value loaded at Prepare.
		if refreshed, err := r.cfg.Store.Find(sess.SessionID); err == nil {
			sess.Todos = refreshed.Todos
		}

		if len(pool.Turns()) > r.cfg.poolDepthGuard() {
			log.Warn().Int("pool_depth", len(pool.Turns())).Msg("pool depth exceeded guard mid-run, rolling back")
			aborted = true
			break loop
		}
	}

	if aborted {
		if abortErr != nil {
			return sess, abortErr
		}
		return sess, orchestrator.Validationf("session %s aborted and rolled back (cancellation or pool-depth guard)", sess.SessionID)
	}

	committed := turns.NewCollection(sess.Turns)
	committed.MergeFrom(pool)
	sess.Turns = committed.Turns()
	sess.Pools = []types.Turn{}
	sess.TokenCount = cumulativeTokens
	sess.CumulativeTotalTokens += cumulativeTokens
	sess.CumulativeCachedTokens += cumulativeCached

	if err := r.cfg.Store.Save(sess); err != nil {
		return nil, err
	}

	if r.cfg.CheckpointsEnabled && len(touchedFiles) > 0 {
		paths := make([]string, 0, len(touchedFiles))
		for p := range touchedFiles {
			paths = append(paths, p)
		}
		sess.Artifacts = appendUnique(sess.Artifacts, paths)
		if err := r.cfg.Store.Save(sess); err != nil {
			return nil, err
		}
		if err := r.cfg.Store.CreateCheckpoint(sess.SessionID, len(sess.Turns)-1, paths); err != nil {
			log.Warn().Err(err).Msg("checkpoint creation failed")
		}
	}

	return sess, nil
}

func (r *Runner) prepare(opts RunOptions) (*types.Session, error) {
	if opts.SessionID != "" {
		sess, err := r.cfg.Store.Find(opts.SessionID)
		if err != nil {
			return nil, err
		}
		sess.References = append(sess.References, opts.References...)
		return sess, nil
	}
	return r.cfg.Store.Create(opts.Purpose, opts.Background, opts.Roles, opts.MultiStepReasoning, opts.Hyperparameters, opts.ParentID)
}

func appendUnique(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e] = struct{}{}
	}
	out := existing
	for _, a := range added {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func collectTouchedFile(toolName string, args map[string]any, touched map[string]struct{}) {
	if toolName != "Write" && toolName != "Edit" {
		return
	}
	if path, ok := args["file_path"].(string); ok && path != "" {
		touched[path] = struct{}{}
	}
}
