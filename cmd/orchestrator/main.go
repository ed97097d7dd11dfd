// Command orchestrator is the CLI entry point that drives one ReAct
// iteration (§4.F) against a session, or performs one of the
// session-management side operations (fork, dry-run) the orchestrator
// needs without spinning up the full loop.
//
// Usage:
//
//	source .env
//	orchestrator -provider anthropic -purpose "triage bug" -instruction "look at the failing test"
//	orchestrator -session <id> -instruction "continue"
//	orchestrator -fork <id> -at-turn 4
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentpipe/orchestrator/pkg/agent"
	agentcontext "github.com/agentpipe/orchestrator/pkg/context"
	"github.com/agentpipe/orchestrator/pkg/config"
	"github.com/agentpipe/orchestrator/pkg/llm"
	"github.com/agentpipe/orchestrator/pkg/orchestrator"
	"github.com/agentpipe/orchestrator/pkg/prompt"
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/tools"
	"github.com/agentpipe/orchestrator/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	projectRoot := flag.String("project-root", ".", "Project root (sessions/, settings.yaml, .env live here)")

	provider := flag.String("provider", "", "LLM provider: groq, openai, anthropic, litellm (or use -base-url)")
	baseURL := flag.String("base-url", "", "Custom base URL (overrides -provider)")
	apiKey := flag.String("api-key", "", "API key (overrides env var)")
	model := flag.String("model", "", "Model ID (overrides provider/settings default)")

	sessionID := flag.String("session", "", "Existing session ID to continue")
	purpose := flag.String("purpose", "", "Purpose for a new session")
	background := flag.String("background", "", "Background for a new session")
	roles := flag.String("roles", "", "Comma-separated role paths for a new session")
	parent := flag.String("parent", "", "Parent session ID for a new child session")
	instruction := flag.String("instruction", "", "Instruction to run this iteration (required for runs)")
	references := flag.String("references", "", "Comma-separated file paths to add as references")
	multiStepReasoning := flag.Bool("multi-step-reasoning", false, "Enable the reasoning-process boilerplate for a new session")

	fork := flag.String("fork", "", "Fork an existing session ID instead of running")
	atTurn := flag.Int("at-turn", -1, "Turn index to fork at (must be a model_response turn)")

	compress := flag.String("compress", "", "Compact an existing session ID's oldest turns instead of running")

	outputFormat := flag.String("output-format", "text", "Output format: json, stream-json, text")
	dryRun := flag.Bool("dry-run", false, "Assemble and print the prompt without calling the LM")

	flag.Parse()

	root, err := filepath.Abs(*projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	config.LoadDotEnv(root)
	settings, err := config.Load(filepath.Join(root, "settings.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	store := session.NewStore(filepath.Join(root, "sessions"))

	if *fork != "" {
		forked, err := store.Fork(*fork, *atTurn)
		if err != nil {
			return reportErr(err)
		}
		fmt.Println(forked.SessionID)
		return 0
	}

	rc, err := resolveConfig(*provider, *baseURL, *apiKey, *model, settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprintln(os.Stderr, "Usage: source .env && orchestrator -provider groq -instruction \"...\"")
		fmt.Fprintln(os.Stderr, "Providers: groq, openai, anthropic, litellm (Azure via litellm)")
		return 2
	}

	client := llm.NewClient(rc)

	taskManager := tools.NewTaskManager()
	registry := agent.DefaultRegistry(root, nil, taskManager)

	cfg := &agent.Config{
		Store:      store,
		Registry:   registry,
		Dispatcher: tools.NewDispatcher(registry),
		LLMClient:  client,
		CacheManager: agentcontext.NewCacheManager(nil, store.CacheRegistryPath()),
		Assembler: prompt.NewAssembler(prompt.Settings{
			MainInstruction:   settingsMainInstruction(settings),
			Language:          settings.Language,
			ToolResponseLimit: 10,
			ProjectRoot:       root,
			Timezone:          loadTimezone(settings.Timezone),
		}),
		Model:                  rc.Model,
		Betas:                  rc.Betas,
		ToolResponseExpiration: settings.ToolResponseExpiration,
		CacheThresholdTokens:   settings.Model.CacheUpdateThreshold,
		ReferenceDefaultTTL:    settings.ReferenceTTL,
		ContextLimit:           settings.ContextLimit,
		ProjectRoot:            root,
		ProcessesDir:           filepath.Join(root, ".processes"),
		CheckpointsEnabled:     settings.CheckpointsEnabled,
	}

	if *compress != "" {
		compactor := agentcontext.NewCompactor(agentcontext.CompactorConfig{LLMClient: client})
		if err := agent.NewRunner(cfg).Compress(context.Background(), compactor, *compress); err != nil {
			return reportErr(err)
		}
		fmt.Println(*compress)
		return 0
	}

	opts := agent.RunOptions{
		SessionID:          *sessionID,
		Purpose:            *purpose,
		Background:         *background,
		Roles:              splitCSV(*roles),
		ParentID:           *parent,
		MultiStepReasoning:  *multiStepReasoning,
		Instruction:        *instruction,
		References:         referencesFrom(*references, settings.ReferenceTTL),
	}

	if *dryRun {
		return runDryRun(cfg, opts, *outputFormat)
	}

	if opts.Instruction == "" {
		fmt.Fprintln(os.Stderr, "Error: -instruction is required")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := agent.NewRunner(cfg)
	sess, err := runner.Run(ctx, opts)
	if err != nil {
		if sess == nil {
			return reportErr(err)
		}
		// An aborted run (pool-depth guard, cancellation, context overflow)
		// still returns the session, without this run's pooled turns —
		// surface both.
		printSession(sess, *outputFormat)
		return reportErr(err)
	}

	printSession(sess, *outputFormat)
	return 0
}

func runDryRun(cfg *agent.Config, opts agent.RunOptions, outputFormat string) int {
	var sess *types.Session
	var err error
	if opts.SessionID != "" {
		sess, err = cfg.Store.Find(opts.SessionID)
	} else {
		sess = &types.Session{
			Purpose:                   opts.Purpose,
			Background:                opts.Background,
			Roles:                     opts.Roles,
			MultiStepReasoningEnabled: opts.MultiStepReasoning,
			References:                opts.References,
		}
	}
	if err != nil {
		return reportErr(err)
	}

	p := cfg.Assembler.Assemble(sess, opts.Instruction)
	switch outputFormat {
	case "json", "stream-json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(p)
	default:
		fmt.Printf("main_instruction: %s\n", p.MainInstruction)
		fmt.Printf("goal: %s\n", p.SessionGoal.Purpose)
		fmt.Printf("roles: %d\n", len(p.Roles.Definitions))
		fmt.Printf("references: %d\n", len(p.FileReferences))
		fmt.Printf("history turns: %d\n", len(p.ConversationHistory.Turns))
		fmt.Printf("current task: %s\n", p.CurrentTask.Instruction)
	}
	return 0
}

func printSession(sess *types.Session, outputFormat string) {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sess)
	case "stream-json":
		// One JSON object per committed turn, newline-delimited, the
		// shape the supervisor (§4.H) scans line-by-line from stdout.
		out := os.Stdout
		enc := json.NewEncoder(out)
		for _, t := range sess.Turns {
			_ = enc.Encode(t)
		}
		fmt.Fprintf(out, "%s\n", mustJSON(map[string]any{"type": "result", "session_id": sess.SessionID}))
	default:
		fmt.Printf("session: %s\n", sess.SessionID)
		for _, t := range sess.Turns {
			printTurnText(t)
		}
	}
}

func printTurnText(t types.Turn) {
	switch t.Type {
	case types.TurnUserTask:
		fmt.Printf("[user] %s\n", t.UserTask.Instruction)
	case types.TurnModelResponse:
		fmt.Printf("[assistant] %s\n", t.ModelResponse.Content)
	case types.TurnFunctionCalling:
		fmt.Printf("[tool_call] %s\n", t.FunctionCalling.Response)
	case types.TurnToolResponse:
		fmt.Printf("[tool_response:%s] %s\n", t.ToolResponse.Response.Status, t.ToolResponse.Response.Message)
	case types.TurnCompressedHistory:
		fmt.Printf("[compressed_history] %s\n", t.CompressedHistory.Content)
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func reportErr(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if oe, ok := orchestrator.As(err); ok {
		return oe.Kind.ExitCode()
	}
	return 2
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func referencesFrom(csv string, defaultTTL int) []types.Reference {
	paths := splitCSV(csv)
	if len(paths) == 0 {
		return nil
	}
	refs := make([]types.Reference, 0, len(paths))
	for _, p := range paths {
		ttl := defaultTTL
		refs = append(refs, types.Reference{Path: p, TTL: &ttl})
	}
	return refs
}

func settingsMainInstruction(s config.Settings) string {
	if s.Language != "" {
		return fmt.Sprintf("You are a task-oriented orchestrator agent. Respond in %s.", s.Language)
	}
	return "You are a task-oriented orchestrator agent."
}

func loadTimezone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type providerConfig struct {
	baseURL    string
	baseURLEnv string
	envKey     string
	envKeys    []string
	model      string
}

var providers = map[string]providerConfig{
	"groq": {
		baseURL:    "https://api.groq.com/openai/v1",
		baseURLEnv: "GROQ_API_BASE",
		envKey:     "GROQ_API_KEY",
		model:      "llama-3.3-70b-versatile",
	},
	"anthropic": {
		baseURL: "https://api.anthropic.com/v1",
		envKey:  "ANTHROPIC_API_KEY",
		model:   "claude-sonnet-4-5-20250929",
	},
	"openai": {
		baseURL: "https://api.openai.com/v1",
		envKey:  "OPENAI_API_KEY",
		model:   "gpt-4o-mini",
	},
	"litellm": {
		baseURL:    "http://localhost:4000/v1",
		baseURLEnv: "LITELLM_BASE_URL",
		envKey:     "EXECUTOR_LITELLM_KEY",
		envKeys:    []string{"LITELLM_MASTER_KEY", "LITELLM_API_KEY"},
		model:      "gpt-5-nano",
	},
}

// resolveConfig picks an llm.ClientConfig the same way the original
// provider-autodetect example did, except it falls back to settings.yaml's
// api_mode/model when no -provider/-base-url flag is given at all, so a
// plain `orchestrator -instruction ...` works off settings alone.
func resolveConfig(provider, baseURL, apiKey, model string, settings config.Settings) (llm.ClientConfig, error) {
	var rc llm.ClientConfig

	if baseURL != "" {
		rc.BaseURL = baseURL
		rc.APIKey = apiKey
		rc.Model = model
		if rc.Model == "" {
			return rc, fmt.Errorf("-model is required when using -base-url")
		}
		return rc, nil
	}

	if provider == "" {
		provider = settings.APIMode
	}
	if provider == "" {
		for _, name := range []string{"groq", "openai", "anthropic", "litellm"} {
			if key := lookupKey(providers[name]); key != "" {
				provider = name
				break
			}
		}
		if provider == "" {
			return rc, fmt.Errorf("no provider specified and no API key found in environment.\n" +
				"Set one of: GROQ_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, EXECUTOR_LITELLM_KEY")
		}
	}

	pc, ok := providers[provider]
	if !ok {
		return rc, fmt.Errorf("unknown provider %q (use: groq, openai, anthropic, litellm)", provider)
	}

	rc.BaseURL = pc.baseURL
	if pc.baseURLEnv != "" {
		if envBase := os.Getenv(pc.baseURLEnv); envBase != "" {
			rc.BaseURL = envBase
		}
	}
	rc.Model = pc.model
	if settings.Model.Name != "" {
		rc.Model = settings.Model.Name
	}

	if apiKey != "" {
		rc.APIKey = apiKey
	} else {
		rc.APIKey = lookupKey(pc)
	}
	if rc.APIKey == "" {
		allKeys := append([]string{pc.envKey}, pc.envKeys...)
		return rc, fmt.Errorf("no API key: set one of %s or use -api-key", strings.Join(allKeys, ", "))
	}

	if model != "" {
		rc.Model = model
	}
	if rc.MaxTokens == 0 {
		rc.MaxTokens = 16384
	}

	return rc, nil
}

func lookupKey(pc providerConfig) string {
	if v := os.Getenv(pc.envKey); v != "" {
		return v
	}
	for _, k := range pc.envKeys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
