// Package turns implements the in-memory operations over a session's turn
// history and file reference list (§4.C of the component design).
package turns

import (
	"sort"
	"time"

	"github.com/agentpipe/orchestrator/pkg/orchestrator"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// Collection wraps a session's Turns slice with the operations the ReAct
// loop and prompt assembler need.
type Collection struct {
	turns []types.Turn
}

func NewCollection(turns []types.Turn) *Collection {
	return &Collection{turns: turns}
}

func (c *Collection) Turns() []types.Turn { return c.turns }

func (c *Collection) Add(t types.Turn) { c.turns = append(c.turns, t) }

func (c *Collection) DeleteByIndex(i int) error {
	if i < 0 || i >= len(c.turns) {
		return orchestrator.Validationf("turn index %d out of range [0,%d)", i, len(c.turns))
	}
	c.turns = append(c.turns[:i], c.turns[i+1:]...)
	return nil
}

// MergeFrom appends other's turns after this collection's, used to drain
// the pool into committed turns on Commit.
func (c *Collection) MergeFrom(other *Collection) {
	c.turns = append(c.turns, other.turns...)
}

// EditByIndex replaces the instruction/content of a user_task or
// model_response turn in place. Any other variant is rejected.
func (c *Collection) EditByIndex(i int, newText string) error {
	if i < 0 || i >= len(c.turns) {
		return orchestrator.Validationf("turn index %d out of range [0,%d)", i, len(c.turns))
	}
	t := &c.turns[i]
	switch t.Type {
	case types.TurnUserTask:
		t.UserTask.Instruction = newText
	case types.TurnModelResponse:
		t.ModelResponse.Content = newText
	default:
		return orchestrator.Validationf("turn %d has type %q, not editable", i, t.Type)
	}
	return nil
}

// GetForPrompt returns turns newest-first, dropping tool_response turns
// past the most recent toolResponseLimit occurrences. Non-tool-response
// turns are never filtered. The caller reverses the result back to
// chronological order before rendering.
func (c *Collection) GetForPrompt(toolResponseLimit int) []types.Turn {
	out := make([]types.Turn, 0, len(c.turns))
	toolResponsesSeen := 0
	for i := len(c.turns) - 1; i >= 0; i-- {
		t := c.turns[i]
		if t.Type == types.TurnToolResponse {
			if toolResponsesSeen >= toolResponseLimit {
				continue
			}
			toolResponsesSeen++
		}
		out = append(out, t)
	}
	return out
}

// Reverse returns a chronologically-ordered copy of a newest-first slice.
func Reverse(in []types.Turn) []types.Turn {
	out := make([]types.Turn, len(in))
	for i, t := range in {
		out[len(in)-1-i] = t
	}
	return out
}

const expiredSentinel = "[tool response expired]"

// ExpireOldToolResponses replaces the message of any succeeded tool
// response turn whose timestamp precedes the threshold-th most recent
// user_task turn, preserving status=succeeded. Returns whether anything
// changed.
func (c *Collection) ExpireOldToolResponses(threshold int) bool {
	if threshold <= 0 {
		return false
	}

	var userTaskTimes []time.Time
	for _, t := range c.turns {
		if t.Type == types.TurnUserTask {
			userTaskTimes = append(userTaskTimes, t.Timestamp)
		}
	}
	if len(userTaskTimes) < threshold {
		return false
	}
	sort.Slice(userTaskTimes, func(i, j int) bool { return userTaskTimes[i].Before(userTaskTimes[j]) })
	cutoff := userTaskTimes[len(userTaskTimes)-threshold]

	changed := false
	for i := range c.turns {
		t := &c.turns[i]
		if t.Type != types.TurnToolResponse {
			continue
		}
		if t.ToolResponse.Response.Status != types.StatusSucceeded {
			continue
		}
		if !t.Timestamp.Before(cutoff) {
			continue
		}
		if t.ToolResponse.Response.Message == expiredSentinel {
			continue
		}
		t.ToolResponse.Response.Message = expiredSentinel
		changed = true
	}
	return changed
}
