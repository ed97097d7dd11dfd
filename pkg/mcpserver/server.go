// Package mcpserver implements the §4.I stdio/HTTP JSON-RPC tool server:
// a long-running process that exposes the compile-time tool registry
// (§4.E) to an external MCP client the same way the in-process ReAct
// loop (§4.F) dispatches tool calls for itself, appending the identical
// function_calling/tool_response turn pair to the target session's pool.
package mcpserver

import (
	"context"
	"encoding/json"
	"os"

	"github.com/agentpipe/orchestrator/pkg/mcp"
	"github.com/agentpipe/orchestrator/pkg/orchestrator"
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/tools"
	"github.com/agentpipe/orchestrator/pkg/turns"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// DefaultSessionIDEnvVar is the environment variable the server reads the
// current session ID from. Requests carry no session ID of their own.
const DefaultSessionIDEnvVar = "ORCHESTRATOR_SESSION_ID"

const protocolVersion = "2024-11-05"

// Server answers JSON-RPC requests against one tool registry, appending
// every successful call's turn pair to whatever session the request
// resolves to. It has no transport of its own — Stdio and the
// StreamableHTTP handler both call Handle.
type Server struct {
	Registry        *tools.Registry
	Dispatcher      *tools.Dispatcher
	Store           *session.Store
	ProjectRoot     string
	SessionIDEnvVar string

	Name    string
	Version string
}

func (s *Server) sessionIDEnvVar() string {
	if s.SessionIDEnvVar != "" {
		return s.SessionIDEnvVar
	}
	return DefaultSessionIDEnvVar
}

func (s *Server) serverInfo() mcp.ServerInfo {
	name, version := s.Name, s.Version
	if name == "" {
		name = "orchestrator-mcpserver"
	}
	if version == "" {
		version = "0.1.0"
	}
	return mcp.ServerInfo{Name: name, Version: version}
}

// Handle dispatches one decoded request and returns the response to
// write back, or nil for a notification (no response expected, per
// JSON-RPC 2.0). Any request with req.ID == nil is a notification,
// "notifications/initialized" included; the method is not consulted.
func (s *Server) Handle(ctx context.Context, req mcp.JSONRPCRequest) *mcp.JSONRPCResponse {
	if req.ID == nil {
		return nil
	}
	id := *req.ID

	switch req.Method {
	case "initialize":
		return result(id, mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcp.ServerCapabilities{Tools: &mcp.ToolsCapability{}},
			ServerInfo:      s.serverInfo(),
		})

	case "tools/list":
		return result(id, mcp.ToolsListResult{Tools: s.toolInfos()})

	case "tools/call":
		var params mcp.ToolCallParams
		if err := decodeParams(req.Params, &params); err != nil {
			return errorResponse(id, orchestrator.ProtocolErrorf("decode tools/call params: %v", err))
		}
		return s.callTool(ctx, id, params.Name, params.Arguments)

	case "run_tool":
		var params struct {
			ToolName  string         `json:"tool_name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := decodeParams(req.Params, &params); err != nil {
			return errorResponse(id, orchestrator.ProtocolErrorf("decode run_tool params: %v", err))
		}
		return s.callTool(ctx, id, params.ToolName, params.Arguments)

	case "ping":
		return result(id, struct{}{})

	default:
		return errorResponse(id, orchestrator.ProtocolErrorf("unknown method %q", req.Method))
	}
}

func (s *Server) toolInfos() []mcp.ToolInfo {
	names := s.Registry.Names()
	infos := make([]mcp.ToolInfo, 0, len(names))
	for _, name := range names {
		tool, _ := s.Registry.Get(name)
		schema, _ := json.Marshal(tool.InputSchema())
		infos = append(infos, mcp.ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: schema,
		})
	}
	return infos
}

// callTool resolves the current session from the environment, runs the
// call through the same Dispatcher the ReAct loop uses, and persists the
// resulting turn pair to that session's pool before replying.
func (s *Server) callTool(ctx context.Context, id int, name string, args map[string]any) *mcp.JSONRPCResponse {
	sessionID := os.Getenv(s.sessionIDEnvVar())
	if sessionID == "" {
		return errorResponse(id, orchestrator.Validationf("no current session (set %s)", s.sessionIDEnvVar()))
	}

	rawCall, _ := json.Marshal(struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}{Name: name, Arguments: args})

	pool := turns.NewCollection(nil)
	dispatch := tools.Context{
		SessionID:   sessionID,
		ProjectRoot: s.ProjectRoot,
		Store:       storeAdapter{s.Store},
	}
	s.Dispatcher.Execute(ctx, pool, dispatch, name, string(rawCall), args)

	produced := pool.Turns()
	if _, err := s.Store.AtomicUpdate(sessionID, func(sess *types.Session) error {
		sess.Pools = append(sess.Pools, produced...)
		return nil
	}); err != nil {
		return errorResponse(id, err)
	}

	response := produced[len(produced)-1].ToolResponse
	if response.Response.Status == types.StatusFailed {
		return &mcp.JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      id,
			Error:   &mcp.JSONRPCError{Code: orchestrator.KindToolFailure.JSONRPCCode(), Message: response.Response.Message},
		}
	}
	return result(id, map[string]any{"status": "succeeded", "result": response.Response.Message})
}

func decodeParams(raw any, into any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, into)
}

func result(id int, payload any) *mcp.JSONRPCResponse {
	data, err := json.Marshal(payload)
	if err != nil {
		return errorResponse(id, err)
	}
	return &mcp.JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: data}
}

func errorResponse(id int, err error) *mcp.JSONRPCResponse {
	code := orchestrator.KindFatal.JSONRPCCode()
	if oe, ok := orchestrator.As(err); ok {
		code = oe.Kind.JSONRPCCode()
	}
	return &mcp.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &mcp.JSONRPCError{Code: code, Message: err.Error()},
	}
}
