package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentpipe/orchestrator/pkg/mcp"
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/tools"
)

type echoTool struct{}

func (e *echoTool) Name() string                { return "Echo" }
func (e *echoTool) Description() string         { return "echoes input" }
func (e *echoTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (e *echoTool) SideEffect() tools.SideEffectType {
	return tools.SideEffectNone
}
func (e *echoTool) Execute(_ context.Context, _ tools.Context, input map[string]any) (tools.ToolOutput, error) {
	msg, _ := input["message"].(string)
	return tools.ToolOutput{Content: msg}, nil
}

type failTool struct{}

func (f *failTool) Name() string                { return "Fail" }
func (f *failTool) Description() string         { return "always fails" }
func (f *failTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (f *failTool) SideEffect() tools.SideEffectType {
	return tools.SideEffectNone
}
func (f *failTool) Execute(_ context.Context, _ tools.Context, _ map[string]any) (tools.ToolOutput, error) {
	return tools.ToolOutput{Content: "boom", IsError: true}, nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	store := session.NewStore(filepath.Join(dir, "sessions"))
	sess, err := store.Create("test", "", nil, false, nil, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reg := tools.NewRegistry()
	reg.Register(&echoTool{})
	reg.Register(&failTool{})

	srv := &Server{
		Registry:   reg,
		Dispatcher: tools.NewDispatcher(reg),
		Store:      store,
	}
	t.Setenv(srv.sessionIDEnvVar(), sess.SessionID)
	return srv, sess.SessionID
}

func idPtr(i int) *int { return &i }

func TestServer_Initialize(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := srv.Handle(context.Background(), mcp.JSONRPCRequest{JSONRPC: "2.0", ID: idPtr(1), Method: "initialize"})
	if resp == nil || resp.Error != nil {
		t.Fatalf("Handle: %+v", resp)
	}
	var out mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out.ProtocolVersion == "" {
		t.Error("expected a non-empty protocol version")
	}
}

func TestServer_ToolsList(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := srv.Handle(context.Background(), mcp.JSONRPCRequest{JSONRPC: "2.0", ID: idPtr(1), Method: "tools/list"})
	var out mcp.ToolsListResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(out.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(out.Tools))
	}
}

func TestServer_ToolsCall_Success(t *testing.T) {
	srv, sessionID := newTestServer(t)
	params, _ := json.Marshal(mcp.ToolCallParams{Name: "Echo", Arguments: map[string]any{"message": "hi"}})
	var raw any
	_ = json.Unmarshal(params, &raw)

	resp := srv.Handle(context.Background(), mcp.JSONRPCRequest{JSONRPC: "2.0", ID: idPtr(1), Method: "tools/call", Params: raw})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	sess, err := srv.Store.Find(sessionID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(sess.Pools) != 2 {
		t.Fatalf("expected 2 turns pooled, got %d", len(sess.Pools))
	}
}

func TestServer_ToolsCall_FailureReturnsJSONRPCError(t *testing.T) {
	srv, _ := newTestServer(t)
	params, _ := json.Marshal(mcp.ToolCallParams{Name: "Fail"})
	var raw any
	_ = json.Unmarshal(params, &raw)

	resp := srv.Handle(context.Background(), mcp.JSONRPCRequest{JSONRPC: "2.0", ID: idPtr(1), Method: "tools/call", Params: raw})
	if resp.Error == nil {
		t.Fatal("expected a JSON-RPC error for a failed tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("code = %d, want -32000", resp.Error.Code)
	}
}

func TestServer_RunTool_LegacyAlias(t *testing.T) {
	srv, _ := newTestServer(t)
	params, _ := json.Marshal(map[string]any{"tool_name": "Echo", "arguments": map[string]any{"message": "hi"}})
	var raw any
	_ = json.Unmarshal(params, &raw)

	resp := srv.Handle(context.Background(), mcp.JSONRPCRequest{JSONRPC: "2.0", ID: idPtr(1), Method: "run_tool", Params: raw})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestServer_Ping(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := srv.Handle(context.Background(), mcp.JSONRPCRequest{JSONRPC: "2.0", ID: idPtr(1), Method: "ping"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestServer_NotificationReturnsNoResponse(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := srv.Handle(context.Background(), mcp.JSONRPCRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	if resp != nil {
		t.Fatalf("expected nil response for a notification, got %+v", resp)
	}
}

func TestServer_NoSessionConfigured(t *testing.T) {
	srv, _ := newTestServer(t)
	os.Unsetenv(srv.sessionIDEnvVar())
	params, _ := json.Marshal(mcp.ToolCallParams{Name: "Echo"})
	var raw any
	_ = json.Unmarshal(params, &raw)

	resp := srv.Handle(context.Background(), mcp.JSONRPCRequest{JSONRPC: "2.0", ID: idPtr(1), Method: "tools/call", Params: raw})
	if resp.Error == nil {
		t.Fatal("expected an error when no session is configured")
	}
}
