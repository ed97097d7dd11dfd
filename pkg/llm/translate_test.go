package llm

import (
	"testing"
)

func TestTranslateFinishReason(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"stop", "end_turn"},
		{"tool_calls", "tool_use"},
		{"length", "max_tokens"},
		{"unknown_reason", "unknown_reason"},
		{"", ""},
		{"content_filter", "content_filter"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := translateFinishReason(tt.input)
			if got != tt.expected {
				t.Errorf("translateFinishReason(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTranslateUsage(t *testing.T) {
	t.Run("nil usage", func(t *testing.T) {
		got := translateUsage(nil)
		if got != (TokenUsage{}) {
			t.Errorf("translateUsage(nil) = %+v, want zero TokenUsage", got)
		}
	})

	t.Run("full usage", func(t *testing.T) {
		u := &Usage{
			PromptTokens:             1234,
			CompletionTokens:         567,
			TotalTokens:              1801,
			CacheReadInputTokens:     100,
			CacheCreationInputTokens: 50,
		}
		got := translateUsage(u)
		expected := TokenUsage{
			InputTokens:              1234,
			OutputTokens:             567,
			CacheReadInputTokens:     100,
			CacheCreationInputTokens: 50,
		}
		if got != expected {
			t.Errorf("translateUsage() = %+v, want %+v", got, expected)
		}
	})

	t.Run("zero usage", func(t *testing.T) {
		u := &Usage{}
		got := translateUsage(u)
		if got != (TokenUsage{}) {
			t.Errorf("translateUsage(&Usage{}) = %+v, want zero TokenUsage", got)
		}
	})
}

func TestToRequestModel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"claude-opus-4-5-20250514", "anthropic/claude-opus-4-5-20250514"},
		{"anthropic/claude-opus-4-5-20250514", "anthropic/claude-opus-4-5-20250514"}, // idempotent
		{"claude-sonnet-4-5-20250929", "anthropic/claude-sonnet-4-5-20250929"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := toRequestModel(tt.input)
			if got != tt.expected {
				t.Errorf("toRequestModel(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFromResponseModel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"anthropic/claude-opus-4-5-20250514", "claude-opus-4-5-20250514"},
		{"claude-opus-4-5-20250514", "claude-opus-4-5-20250514"}, // no prefix
		{"anthropic/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := fromResponseModel(tt.input)
			if got != tt.expected {
				t.Errorf("fromResponseModel(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
