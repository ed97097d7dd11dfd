package tools

import (
	"context"
	"testing"
	"time"

	"github.com/agentpipe/orchestrator/pkg/turns"
	"github.com/agentpipe/orchestrator/pkg/types"
)

type echoTool struct{}

func (e *echoTool) Name() string                     { return "Echo" }
func (e *echoTool) Description() string              { return "echoes input" }
func (e *echoTool) InputSchema() map[string]any      { return map[string]any{"type": "object"} }
func (e *echoTool) SideEffect() SideEffectType       { return SideEffectNone }
func (e *echoTool) Execute(_ context.Context, _ Context, input map[string]any) (ToolOutput, error) {
	msg, _ := input["message"].(string)
	return ToolOutput{Content: msg}, nil
}

type panicTool struct{}

func (p *panicTool) Name() string                     { return "Panic" }
func (p *panicTool) Description() string              { return "always panics" }
func (p *panicTool) InputSchema() map[string]any      { return map[string]any{"type": "object"} }
func (p *panicTool) SideEffect() SideEffectType       { return SideEffectNone }
func (p *panicTool) Execute(_ context.Context, _ Context, _ map[string]any) (ToolOutput, error) {
	panic("boom")
}

func newTestDispatcher(t *testing.T, tools ...Tool) (*Dispatcher, *turns.Collection) {
	t.Helper()
	reg := NewRegistry()
	for _, tool := range tools {
		reg.Register(tool)
	}
	d := NewDispatcher(reg)
	d.Clock = func() time.Time { return time.Unix(0, 0) }
	return d, turns.NewCollection(nil)
}

func TestDispatcher_RecordsSucceededResponse(t *testing.T) {
	d, pool := newTestDispatcher(t, &echoTool{})
	d.Execute(context.Background(), pool, Context{}, "Echo", `{"message":"hi"}`, map[string]any{"message": "hi"})

	got := pool.Turns()
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Type != types.TurnFunctionCalling {
		t.Errorf("expected function_calling turn first, got %s", got[0].Type)
	}
	if got[1].Type != types.TurnToolResponse || got[1].ToolResponse.Response.Status != types.StatusSucceeded {
		t.Errorf("expected succeeded tool_response, got %+v", got[1])
	}
}

func TestDispatcher_UnknownToolFails(t *testing.T) {
	d, pool := newTestDispatcher(t)
	d.Execute(context.Background(), pool, Context{}, "Nope", "{}", map[string]any{})

	got := pool.Turns()
	if got[1].ToolResponse.Response.Status != types.StatusFailed {
		t.Errorf("expected failed response for unknown tool, got %+v", got[1])
	}
}

func TestDispatcher_RejectsTraversalToolName(t *testing.T) {
	d, pool := newTestDispatcher(t, &echoTool{})
	d.Execute(context.Background(), pool, Context{}, "../etc/passwd", "{}", map[string]any{})

	got := pool.Turns()
	if got[1].ToolResponse.Response.Status != types.StatusFailed {
		t.Errorf("expected failed response for traversal-looking name, got %+v", got[1])
	}
}

func TestDispatcher_RecoversPanic(t *testing.T) {
	d, pool := newTestDispatcher(t, &panicTool{})
	d.Execute(context.Background(), pool, Context{}, "Panic", "{}", map[string]any{})

	got := pool.Turns()
	if got[1].ToolResponse.Response.Status != types.StatusFailed {
		t.Errorf("expected failed response after panic, got %+v", got[1])
	}
}
