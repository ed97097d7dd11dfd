package agent

import (
	"github.com/agentpipe/orchestrator/pkg/tools"
)

// DefaultRegistry wires every currently-available tool into a Registry
// rooted at cwd, grounded on the teacher's DefaultRegistry(cwd,
// mcpClient) pattern: read-only tools are marked auto-allowed, every
// tool's structural dependencies (working directory, task manager, MCP
// client) are injected as struct fields, and MCP server tools are
// registered dynamically per resource once a server connects (via
// Registry.RegisterMCPTool, not here).
func DefaultRegistry(cwd string, mcpClient tools.MCPClient, taskManager *tools.TaskManager) *tools.Registry {
	if mcpClient == nil {
		mcpClient = &tools.StubMCPClient{}
	}

	r := tools.NewRegistry(
		tools.WithAllowed("Read", "Glob", "Grep", "TodoWrite", "Config", "ListMcpResources", "ReadMcpResource"),
	)

	r.Register(&tools.BashTool{CWD: cwd, TaskManager: taskManager})
	r.Register(&tools.TaskOutputTool{TaskManager: taskManager})
	r.Register(&tools.TaskStopTool{TaskManager: taskManager})
	r.Register(&tools.FileReadTool{})
	r.Register(&tools.FileWriteTool{})
	r.Register(&tools.FileEditTool{})
	r.Register(&tools.GlobTool{CWD: cwd})
	r.Register(&tools.GrepTool{CWD: cwd})
	r.Register(&tools.TodoWriteTool{})
	r.Register(&tools.ConfigTool{Store: tools.NewInMemoryConfigStore()})
	r.Register(&tools.DelegateTool{})
	r.Register(&tools.WebFetchTool{})
	r.Register(&tools.WebSearchTool{Provider: &tools.StubSearchProvider{}})
	r.Register(&tools.ListMcpResourcesTool{Client: mcpClient})
	r.Register(&tools.ReadMcpResourceTool{Client: mcpClient})

	return r
}
