// Package agent implements the ReAct execution loop (§4.F): the
// orchestrator's single entry point for driving one session through one
// instruction, turn by turn, against a tool-calling LM.
package agent

import (
	"github.com/rs/zerolog"

	agentcontext "github.com/agentpipe/orchestrator/pkg/context"
	"github.com/agentpipe/orchestrator/pkg/llm"
	"github.com/agentpipe/orchestrator/pkg/prompt"
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/tools"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// defaultPoolDepthGuard is the default bound on how many turns may
// accumulate in a session's pool within a single Run before the loop
// aborts and rolls back, grounded on takt.py's hardcoded limit of 7.
const defaultPoolDepthGuard = 7

// defaultToolResponseExpiration is the default number of most-recent
// user_task turns within which a tool_response's content is kept live;
// anything older is replaced with the expired sentinel.
const defaultToolResponseExpiration = 3

// defaultCacheThresholdTokens is the default §4.G rebuild threshold.
const defaultCacheThresholdTokens = 2048

// Config wires together every collaborator the Runner needs. It holds no
// per-run state — a single Config is reused across Run calls for
// different sessions.
type Config struct {
	Store        *session.Store
	Registry     *tools.Registry
	Dispatcher   *tools.Dispatcher
	LLMClient    llm.Client
	CacheManager *agentcontext.CacheManager
	Assembler    *prompt.Assembler

	Model           string
	Betas           []string
	MaxOutputTokens int

	// ToolResponseLimit is not read by Runner; the prompt assembler takes
	// its inlining limit from prompt.Settings.ToolResponseLimit (§4.D).
	// ToolResponseExpiration bounds how many
	// recent user_task turns keep a tool_response's content live (§4.C).
	ToolResponseLimit      int
	ToolResponseExpiration int

	CacheThresholdTokens int
	PoolDepthGuard       int
	ReferenceDefaultTTL  int

	// ContextLimit is the hard upper bound on rendered-prompt tokens
	// (§6); a zero value falls back to the model's own context window
	// via agentcontext.GetContextLimit.
	ContextLimit int

	ProjectRoot        string
	ProcessesDir       string
	CheckpointsEnabled bool

	Logger *zerolog.Logger
}

func (c *Config) poolDepthGuard() int {
	if c.PoolDepthGuard > 0 {
		return c.PoolDepthGuard
	}
	return defaultPoolDepthGuard
}

func (c *Config) toolResponseExpiration() int {
	if c.ToolResponseExpiration > 0 {
		return c.ToolResponseExpiration
	}
	return defaultToolResponseExpiration
}

func (c *Config) referenceDefaultTTL() int {
	if c.ReferenceDefaultTTL > 0 {
		return c.ReferenceDefaultTTL
	}
	return 5
}

func (c *Config) cacheThreshold() int {
	if c.CacheThresholdTokens > 0 {
		return c.CacheThresholdTokens
	}
	return defaultCacheThresholdTokens
}

func (c *Config) maxOutputTokens() int {
	if c.MaxOutputTokens > 0 {
		return c.MaxOutputTokens
	}
	return 16384
}

func (c *Config) contextLimit() int {
	if c.ContextLimit > 0 {
		return c.ContextLimit
	}
	return agentcontext.GetContextLimit(c.Model, c.Betas)
}

func (c *Config) logger() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	l := zerolog.Nop()
	return &l
}

// RunOptions is the per-invocation input to Runner.Run: either a fresh
// session's identity (Purpose/Background/...) or an existing SessionID to
// resume, plus the instruction driving this ReAct iteration.
type RunOptions struct {
	SessionID string

	// Fields used only when SessionID is empty, to create a new session.
	Purpose             string
	Background          string
	Roles               []string
	ParentID            string
	MultiStepReasoning  bool
	Hyperparameters     *types.Hyperparameters

	Instruction string
	References  []types.Reference
}
