// Command mcpserver runs the §4.I JSON-RPC tool server, exposing the
// same compile-time tool registry the in-process ReAct loop (§4.F) uses
// to an external MCP client over stdio or StreamableHTTP.
//
// Usage:
//
//	ORCHESTRATOR_SESSION_ID=<id> mcpserver -project-root .
//	mcpserver -project-root . -http :8090
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/agentpipe/orchestrator/pkg/agent"
	"github.com/agentpipe/orchestrator/pkg/config"
	"github.com/agentpipe/orchestrator/pkg/mcpserver"
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/tools"
)

func main() {
	os.Exit(run())
}

func run() int {
	projectRoot := flag.String("project-root", ".", "Project root (sessions/ lives here)")
	httpAddr := flag.String("http", "", "Serve StreamableHTTP on this address instead of stdio (e.g. :8090)")
	flag.Parse()

	root, err := filepath.Abs(*projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	config.LoadDotEnv(root)

	store := session.NewStore(filepath.Join(root, "sessions"))
	taskManager := tools.NewTaskManager()
	registry := agent.DefaultRegistry(root, nil, taskManager)

	srv := &mcpserver.Server{
		Registry:    registry,
		Dispatcher:  tools.NewDispatcher(registry),
		Store:       store,
		ProjectRoot: root,
		Name:        "orchestrator",
		Version:     "1.0.0",
	}

	if *httpAddr != "" {
		httpSrv := mcpserver.NewStreamableHTTPServer(*httpAddr, srv)
		fmt.Fprintf(os.Stderr, "mcpserver: listening on %s\n", *httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := mcpserver.RunStdio(ctx, srv, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
