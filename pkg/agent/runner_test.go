package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	agentcontext "github.com/agentpipe/orchestrator/pkg/context"
	"github.com/agentpipe/orchestrator/pkg/llm"
	"github.com/agentpipe/orchestrator/pkg/prompt"
	"github.com/agentpipe/orchestrator/pkg/session"
	"github.com/agentpipe/orchestrator/pkg/tools"
	"github.com/agentpipe/orchestrator/pkg/types"
)

func ts0() time.Time { return time.Unix(0, 0) }

// textStream builds a Stream that accumulates into a plain-text
// model_response, the way a real SSE completion with no tool call would.
func textStream(text string) *llm.Stream {
	ch := make(chan llm.StreamEvent, 2)
	ch <- llm.StreamEvent{Chunk: &llm.StreamChunk{Choices: []llm.Choice{{Delta: llm.Delta{Content: &text}}}}}
	ch <- llm.StreamEvent{Done: true}
	close(ch)
	return llm.NewStream(ch, nil, func() {})
}

// toolCallStream builds a Stream that accumulates into a single tool
// call, the way a real SSE completion choosing to invoke a tool would.
func toolCallStream(name, argsJSON string) *llm.Stream {
	ch := make(chan llm.StreamEvent, 2)
	ch <- llm.StreamEvent{Chunk: &llm.StreamChunk{Choices: []llm.Choice{{Delta: llm.Delta{
		ToolCalls: []llm.ToolCall{{Index: 0, ID: "call_1", Type: "function", Function: llm.FunctionCall{Name: name, Arguments: argsJSON}}},
	}}}}}
	ch <- llm.StreamEvent{Done: true}
	close(ch)
	return llm.NewStream(ch, nil, func() {})
}

// fixedClient replays a queue of pre-built streams in order, one per
// Complete call, so a test can script a multi-iteration ReAct loop.
type fixedClient struct {
	queue []*llm.Stream
	model string
}

func (f *fixedClient) Complete(_ context.Context, _ *llm.CompletionRequest) (*llm.Stream, error) {
	s := f.queue[0]
	f.queue = f.queue[1:]
	return s, nil
}
func (f *fixedClient) Model() string         { return f.model }
func (f *fixedClient) SetModel(model string) { f.model = model }

func newTestConfig(t *testing.T, client llm.Client) *Config {
	t.Helper()
	dir := t.TempDir()
	store := session.NewStore(filepath.Join(dir, "sessions"))
	registry := tools.NewRegistry()
	return &Config{
		Store:        store,
		Registry:     registry,
		Dispatcher:   tools.NewDispatcher(registry),
		LLMClient:    client,
		CacheManager: agentcontext.NewCacheManager(nil, store.CacheRegistryPath()),
		Assembler:    prompt.NewAssembler(prompt.Settings{MainInstruction: "Be helpful.", ToolResponseLimit: 10}),
		Model:        "claude-haiku-4-5-20251001",
		ProjectRoot:  dir,
	}
}

func TestRunner_SingleInstructionNoTools(t *testing.T) {
	client := &fixedClient{queue: []*llm.Stream{textStream("hello")}}
	cfg := newTestConfig(t, client)
	r := NewRunner(cfg)

	sess, err := r.Run(context.Background(), RunOptions{Purpose: "greet", Instruction: "hi"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sess.Turns) != 2 {
		t.Fatalf("len(Turns) = %d, want 2", len(sess.Turns))
	}
	if sess.Turns[0].Type != types.TurnUserTask || sess.Turns[0].UserTask.Instruction != "hi" {
		t.Errorf("turn 0 = %+v, want user_task(hi)", sess.Turns[0])
	}
	if sess.Turns[1].Type != types.TurnModelResponse || sess.Turns[1].ModelResponse.Content != "hello" {
		t.Errorf("turn 1 = %+v, want model_response(hello)", sess.Turns[1])
	}
	if len(sess.Pools) != 0 {
		t.Errorf("expected pool drained to empty, got %d", len(sess.Pools))
	}
}

func TestRunner_ToolCallThenFinalResponse(t *testing.T) {
	client := &fixedClient{queue: []*llm.Stream{
		toolCallStream("Config", `{"setting":"x"}`),
		textStream("done"),
	}}
	cfg := newTestConfig(t, client)
	cfg.Registry.Register(&tools.ConfigTool{Store: tools.NewInMemoryConfigStore()})
	r := NewRunner(cfg)

	sess, err := r.Run(context.Background(), RunOptions{Purpose: "configure", Instruction: "set x"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sess.Turns) != 4 {
		t.Fatalf("len(Turns) = %d, want 4 (user_task, function_calling, tool_response, model_response); got %+v", len(sess.Turns), sess.Turns)
	}
	wantTypes := []types.TurnType{types.TurnUserTask, types.TurnFunctionCalling, types.TurnToolResponse, types.TurnModelResponse}
	for i, want := range wantTypes {
		if sess.Turns[i].Type != want {
			t.Errorf("turn %d type = %s, want %s", i, sess.Turns[i].Type, want)
		}
	}
}

func TestRunner_PreExistingStuckPoolAborts(t *testing.T) {
	client := &fixedClient{queue: []*llm.Stream{textStream("unused")}}
	cfg := newTestConfig(t, client)
	cfg.PoolDepthGuard = 2
	r := NewRunner(cfg)

	sess, err := cfg.Store.Create("stuck", "", nil, false, nil, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sess.Pools = []types.Turn{types.NewUserTask("a", ts0()), types.NewModelResponse("b", ts0())}
	if err := cfg.Store.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err = r.Run(context.Background(), RunOptions{SessionID: sess.SessionID, Instruction: "go"})
	if err == nil {
		t.Fatal("expected an error for a session whose pool is already at the guard limit")
	}
}

func TestRunner_CancelledContextRollsBackPool(t *testing.T) {
	client := &fixedClient{queue: []*llm.Stream{textStream("unused")}}
	cfg := newTestConfig(t, client)
	r := NewRunner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess, err := r.Run(ctx, RunOptions{Purpose: "cancel me", Instruction: "go"})
	if err == nil {
		t.Fatal("expected an error from a pre-cancelled context")
	}
	if sess == nil {
		t.Fatal("expected the session back even on rollback")
	}
	if len(sess.Turns) != 0 {
		t.Errorf("expected no turns committed on rollback, got %d", len(sess.Turns))
	}

	reloaded, err := cfg.Store.Find(sess.SessionID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(reloaded.Turns) != 0 {
		t.Errorf("rollback must not persist any turns, got %d on disk", len(reloaded.Turns))
	}
}
