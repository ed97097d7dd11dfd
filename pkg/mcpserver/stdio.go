package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/agentpipe/orchestrator/pkg/mcp"
)

const (
	stdioInitialBuffer = 64 * 1024
	stdioMaxBuffer      = 1024 * 1024
)

// RunStdio reads newline-framed JSON-RPC 2.0 requests from r and writes
// responses to w, one per line, until r reaches EOF or ctx is done.
// Malformed JSON is a ProtocolError per §7: the line is dropped silently
// rather than answered with an error, since there's no request ID to
// correlate a response to. Grounded on pkg/mcp/stdio.go's client-side
// scanner loop, turned around to answer requests instead of issuing them.
func RunStdio(ctx context.Context, srv *Server, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, stdioInitialBuffer), stdioMaxBuffer)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req mcp.JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			continue // malformed JSON dropped silently, per §7 ProtocolError
		}

		resp := srv.Handle(ctx, req)
		if resp == nil {
			continue // notification: no response expected
		}
		data, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return scanner.Err()
}
