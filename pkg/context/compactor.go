package context

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentpipe/orchestrator/pkg/llm"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// CompactorConfig configures a Compactor.
type CompactorConfig struct {
	LLMClient     llm.Client
	Estimator     TokenEstimator // default: SimpleEstimator
	SummaryModel  string         // default: "claude-haiku-4-5-20251001"
	ThresholdPct  float64        // default: 0.80
	CriticalPct   float64        // default: 0.95
	PreserveRatio float64        // default: 0.40
}

// Compactor is the supplemental counterpart to CacheManager: where the
// cache manager decides what a single iteration sends to the LM,
// Compactor decides what stays in session.Turns at all, once the
// conversation's estimated footprint crosses a threshold. It replaces
// the oldest stretch of committed turns with a single compressed_history
// turn, preserving the most recent turns verbatim.
type Compactor struct {
	client        llm.Client
	estimator     TokenEstimator
	summaryModel  string
	thresholdPct  float64
	criticalPct   float64
	preserveRatio float64
}

// NewCompactor creates a Compactor with sensible defaults for any unset
// config fields.
func NewCompactor(cfg CompactorConfig) *Compactor {
	c := &Compactor{
		client:        cfg.LLMClient,
		estimator:     cfg.Estimator,
		summaryModel:  cfg.SummaryModel,
		thresholdPct:  cfg.ThresholdPct,
		criticalPct:   cfg.CriticalPct,
		preserveRatio: cfg.PreserveRatio,
	}
	if c.estimator == nil {
		c.estimator = &SimpleEstimator{}
	}
	if c.summaryModel == "" {
		c.summaryModel = "claude-haiku-4-5-20251001"
	}
	if c.thresholdPct == 0 {
		c.thresholdPct = 0.80
	}
	if c.criticalPct == 0 {
		c.criticalPct = 0.95
	}
	if c.preserveRatio == 0 {
		c.preserveRatio = 0.40
	}
	return c
}

// ShouldCompact returns true if the context utilization exceeds the
// configured threshold.
func (c *Compactor) ShouldCompact(budget TokenBudget) bool {
	return budget.UtilizationPct() > c.thresholdPct
}

// MustCompact returns true if the context utilization exceeds the
// critical threshold — used to force compaction after a max_tokens stop.
func (c *Compactor) MustCompact(budget TokenBudget) bool {
	return budget.UtilizationPct() > c.criticalPct
}

// Compact summarizes the oldest turns in history into one
// compressed_history turn, keeping the most recent turns verbatim. On
// summary generation failure (or no LLM client configured) it falls back
// to plain truncation — dropping the oldest turns with no replacement —
// rather than blocking the loop.
func (c *Compactor) Compact(ctx context.Context, history []types.Turn, contextLimit int, now time.Time) ([]types.Turn, error) {
	if len(history) <= 1 {
		return history, nil
	}

	preserveBudget := int(float64(contextLimit) * c.preserveRatio)
	splitIdx := c.calculateSplitPoint(history, preserveBudget)
	if splitIdx <= 0 || splitIdx >= len(history) {
		return history, nil
	}

	compactZone := history[:splitIdx]
	preserveZone := history[splitIdx:]

	if c.client == nil {
		return preserveZone, nil
	}

	summary, err := c.generateSummary(ctx, compactZone)
	if err != nil {
		return preserveZone, nil
	}

	compressed := types.NewCompressedHistory(summary, 0, splitIdx-1, now)
	return append([]types.Turn{compressed}, preserveZone...), nil
}

// calculateSplitPoint walks backward from the end of history,
// accumulating estimated tokens until the preserve budget is exceeded.
// The split never separates a function_calling turn from its
// tool_response.
func (c *Compactor) calculateSplitPoint(history []types.Turn, preserveBudget int) int {
	if len(history) == 0 {
		return 0
	}

	tokens := 0
	splitIdx := len(history) // default: compact everything
	for i := len(history) - 1; i >= 0; i-- {
		tokens += c.estimator.Estimate(RenderTurnText(history[i])) + 4
		if tokens > preserveBudget {
			splitIdx = i + 1
			break
		}
		if i == 0 {
			return 0 // everything fits in the preserve budget
		}
	}

	if splitIdx >= len(history) {
		splitIdx = len(history) - 1
	}
	if splitIdx < 1 {
		return 1
	}

	return c.adjustSplitForToolPairs(history, splitIdx)
}

// adjustSplitForToolPairs moves the split index backward so a
// function_calling turn and its tool_response never land on opposite
// sides of the cut.
func (c *Compactor) adjustSplitForToolPairs(history []types.Turn, splitIdx int) int {
	if splitIdx >= len(history) || splitIdx <= 0 {
		return splitIdx
	}

	for splitIdx > 0 && (history[splitIdx].Type == types.TurnToolResponse ||
		history[splitIdx].Type == types.TurnFunctionCalling) {
		splitIdx--
	}

	if splitIdx < 1 {
		return 1
	}
	return splitIdx
}

const compactionPrompt = `Summarize the following conversation turns, preserving:
1. Key decisions and their rationale
2. File paths and code changes made
3. Unresolved questions or pending tasks
4. User preferences and constraints mentioned
5. Tool outputs that are still relevant

Be concise but complete. Use structured format with sections.`

// generateSummary calls the LLM to produce a summary of the given turns.
func (c *Compactor) generateSummary(ctx context.Context, turns []types.Turn) (string, error) {
	var sb strings.Builder
	sb.WriteString(compactionPrompt)
	sb.WriteString("\n\n--- TURNS TO SUMMARIZE ---\n")
	for _, t := range turns {
		text := RenderTurnText(t)
		if len(text) > 2000 {
			text = text[:2000] + "..."
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	req := &llm.CompletionRequest{
		Model:     c.summaryModel,
		Stream:    true,
		MaxTokens: 4096,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: sb.String()},
		},
	}

	stream, err := c.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("context: compaction summary LLM call: %w", err)
	}

	resp, err := stream.Accumulate()
	if err != nil {
		return "", fmt.Errorf("context: compaction summary drain: %w", err)
	}

	return resp.Text(), nil
}
