package tools

import (
	"context"
	"strings"
	"testing"
)

func TestDelegate_CreatesChildSession(t *testing.T) {
	tool := &DelegateTool{}
	store := &fakeSessionStore{}

	out, err := tool.Execute(context.Background(), Context{SessionID: "parent", Store: store}, map[string]any{
		"purpose":    "investigate flaky test",
		"background": "CI has failed three times this week",
		"roles":      []any{"roles/qa.md"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if !strings.Contains(out.Content, "parent/child") {
		t.Errorf("expected child session id in output, got %q", out.Content)
	}
}

func TestDelegate_MissingPurposeErrors(t *testing.T) {
	tool := &DelegateTool{}
	out, err := tool.Execute(context.Background(), Context{Store: &fakeSessionStore{}}, map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsError {
		t.Error("expected error for missing purpose")
	}
}

func TestDelegate_NoStoreConfigured(t *testing.T) {
	tool := &DelegateTool{}
	out, err := tool.Execute(context.Background(), Context{}, map[string]any{"purpose": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsError {
		t.Error("expected error when no store configured")
	}
}
