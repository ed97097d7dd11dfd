package tools

import (
	"context"
	"strings"
	"time"

	"github.com/agentpipe/orchestrator/pkg/orchestrator"
	"github.com/agentpipe/orchestrator/pkg/turns"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// Dispatcher resolves a tool call by name and records its outcome as a
// function_calling + tool_response turn pair on the pool (§4.E).
type Dispatcher struct {
	Registry *Registry
	Clock    func() time.Time
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{Registry: registry, Clock: time.Now}
}

func (d *Dispatcher) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Execute resolves toolName, invokes it with args, and appends the
// function_calling turn (the model's call, echoed back verbatim) and the
// resulting tool_response turn to pool. It never returns a Go error for
// tool-level failures — those are recorded as a failed tool_response
// turn instead, per §4.F's "tool errors are conversational, not fatal"
// rule. A malformed tool name is handled the same way: the
// function_calling turn is written, followed by a failed tool_response.
func (d *Dispatcher) Execute(ctx context.Context, pool *turns.Collection, dispatch Context, toolName, rawCall string, args map[string]any) {
	now := d.now()
	pool.Add(types.NewFunctionCalling(rawCall, now))

	if strings.ContainsAny(toolName, "./\\") {
		pool.Add(types.NewToolResponse(toolName, types.StatusFailed, "invalid tool name", d.now()))
		return
	}

	tool, ok := d.Registry.Get(toolName)
	if !ok {
		pool.Add(types.NewToolResponse(toolName, types.StatusFailed,
			orchestrator.NotFoundf("tool %q is not registered", toolName).Error(), d.now()))
		return
	}
	if d.Registry.IsDisabled(toolName) {
		pool.Add(types.NewToolResponse(toolName, types.StatusFailed, "tool is disabled", d.now()))
		return
	}

	out, err := d.safeExecute(ctx, tool, dispatch, args)

	if err != nil {
		pool.Add(types.NewToolResponse(toolName, types.StatusFailed, err.Error(), d.now()))
		return
	}

	status := types.StatusSucceeded
	if out.IsError {
		status = types.StatusFailed
	}
	pool.Add(types.NewToolResponse(toolName, status, out.Content, d.now()))
}

// safeExecute recovers a panicking tool implementation into an error so
// one misbehaving tool can't abort the whole ReAct loop.
func (d *Dispatcher) safeExecute(ctx context.Context, tool Tool, dispatch Context, args map[string]any) (out ToolOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = orchestrator.ToolFailuref("tool %q panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, dispatch, args)
}
