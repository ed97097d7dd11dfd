package turns

import (
	"testing"
	"time"

	"github.com/agentpipe/orchestrator/pkg/types"
)

func TestGetForPrompt_FiltersOldToolResponses(t *testing.T) {
	now := time.Now()
	c := NewCollection([]types.Turn{
		types.NewToolResponse("a", types.StatusSucceeded, "1", now),
		types.NewToolResponse("b", types.StatusSucceeded, "2", now.Add(time.Second)),
		types.NewToolResponse("c", types.StatusSucceeded, "3", now.Add(2*time.Second)),
		types.NewModelResponse("final", now.Add(3*time.Second)),
	})

	got := c.GetForPrompt(1)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Type != types.TurnModelResponse {
		t.Errorf("got[0].Type = %q, want model_response (newest first)", got[0].Type)
	}
	if got[1].ToolResponse.Name != "c" {
		t.Errorf("got[1].Name = %q, want c (only most recent tool response kept)", got[1].ToolResponse.Name)
	}
}

func TestExpireOldToolResponses(t *testing.T) {
	base := time.Now()
	c := NewCollection([]types.Turn{
		types.NewUserTask("first", base),
		types.NewToolResponse("old", types.StatusSucceeded, "result-1", base.Add(time.Second)),
		types.NewUserTask("second", base.Add(2*time.Second)),
		types.NewToolResponse("recent", types.StatusSucceeded, "result-2", base.Add(3*time.Second)),
		types.NewUserTask("third", base.Add(4*time.Second)),
	})

	changed := c.ExpireOldToolResponses(2)
	if !changed {
		t.Fatal("expected a change")
	}

	turnsOut := c.Turns()
	if turnsOut[1].ToolResponse.Response.Message != expiredSentinel {
		t.Errorf("old tool response not expired: %+v", turnsOut[1].ToolResponse)
	}
	if turnsOut[1].ToolResponse.Response.Status != types.StatusSucceeded {
		t.Errorf("status changed on expiry, want succeeded preserved")
	}
	if turnsOut[3].ToolResponse.Response.Message != "result-2" {
		t.Errorf("recent tool response should be untouched, got %q", turnsOut[3].ToolResponse.Response.Message)
	}
}

func TestExpireOldToolResponses_BelowThresholdIsNoop(t *testing.T) {
	base := time.Now()
	c := NewCollection([]types.Turn{
		types.NewUserTask("only", base),
		types.NewToolResponse("x", types.StatusSucceeded, "result", base.Add(time.Second)),
	})
	if c.ExpireOldToolResponses(5) {
		t.Error("expected no change when fewer user tasks than threshold")
	}
}

func TestReferenceCollection_DecrementAndDisable(t *testing.T) {
	ttl2 := 2
	rc := NewReferenceCollection([]types.Reference{
		{Path: "a.md", TTL: &ttl2},
	}, 5)

	rc.DecrementAllTtl()
	rc.DecrementAllTtl()

	entries := rc.Entries()
	if !entries[0].Disabled {
		t.Errorf("reference should be disabled once TTL hits 0, got %+v", entries[0])
	}
}

func TestReferenceCollection_Sorted(t *testing.T) {
	ttlLow := 1
	ttlHigh := 10
	rc := NewReferenceCollection([]types.Reference{
		{Path: "low.md", TTL: &ttlLow},
		{Path: "disabled.md", Disabled: true},
		{Path: "high.md", TTL: &ttlHigh},
	}, 5)

	sorted := rc.Sorted()
	if sorted[0].Path != "high.md" || sorted[1].Path != "low.md" || sorted[2].Path != "disabled.md" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
}
