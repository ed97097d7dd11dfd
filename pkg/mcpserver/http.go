package mcpserver

import (
	"encoding/json"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/agentpipe/orchestrator/pkg/mcp"
)

// StreamableHTTPHandler exposes Server over HTTP POST, grounded on
// pkg/mcp/http.go's client-side Streamable HTTP shape (one JSON-RPC
// request per POST body, one JSON-RPC response per body) but answering
// requests rather than issuing them. Responses are always immediate
// JSON here — this domain's tool calls don't stream partial results the
// way an MCP server pushing progress notifications over SSE would.
type StreamableHTTPHandler struct {
	Server *Server
}

func (h *StreamableHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req mcp.JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp := h.Server.Handle(r.Context(), req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted) // notification: nothing to report back
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// NewStreamableHTTPServer wraps handler in an h2c handler so the server
// speaks HTTP/2 over cleartext — the transport external MCP clients over
// a network (rather than a spawned stdio process) are expected to use,
// per §4.I/§6.
func NewStreamableHTTPServer(addr string, srv *Server) *http.Server {
	h2s := &http2.Server{}
	handler := h2c.NewHandler(&StreamableHTTPHandler{Server: srv}, h2s)
	return &http.Server{Addr: addr, Handler: handler}
}
