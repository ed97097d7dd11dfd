package types

// McpServerConfig describes how to connect to a single MCP server that
// supplies additional tools to the registry (§4.E), independent of the
// compile-time tool set.
type McpServerConfig struct {
	Type string `json:"type"` // "stdio"|"sse"|"http"

	// stdio
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// sse/http
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}
