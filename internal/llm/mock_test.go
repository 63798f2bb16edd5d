package llm

import (
	"context"
	"strings"
	"testing"
)

func TestMockGeneratorEchoesLastUserMessage(t *testing.T) {
	gen := NewMockGenerator()
	req := Request{
		SessionID: "sess-1",
		Messages: []Message{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "ping"},
		},
	}

	var got Chunk
	err := gen.Generate(context.Background(), req, func(c Chunk) error {
		got = c
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ToolCall != nil {
		t.Fatalf("expected no tool call without tools in the request, got %+v", got.ToolCall)
	}
	if !strings.Contains(got.Content, "ping") {
		t.Fatalf("expected echoed content to mention the last user message, got %q", got.Content)
	}
	if got.Partial {
		t.Fatal("mock generator's only chunk should not be partial")
	}
}

func TestMockGeneratorEmitsToolCallWhenToolsRequested(t *testing.T) {
	gen := NewMockGenerator()
	req := Request{
		SessionID: "sess-1",
		Messages:  []Message{{Role: "user", Content: "run it"}},
		Tools:     []ToolSpec{{Name: "get_weather"}},
	}

	var got Chunk
	err := gen.Generate(context.Background(), req, func(c Chunk) error {
		got = c
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ToolCall == nil || got.ToolCall.Name != "get_weather" {
		t.Fatalf("expected a tool call for get_weather, got %+v", got.ToolCall)
	}
}
