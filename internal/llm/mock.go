package llm

import (
	"context"
	"strings"
	"time"
)

type mockGenerator struct{}

func NewMockGenerator() Generator { return &mockGenerator{} }

func (m *mockGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}

	if len(req.Tools) > 0 {
		return consumer(Chunk{
			SessionID: req.SessionID,
			ToolCall:  &ToolCall{Name: req.Tools[0].Name, ArgumentsJSON: "{}"},
			Partial:   false,
			Latency:   20 * time.Millisecond,
			TraceID:   req.TraceID,
		})
	}

	var last string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			last = msg.Content
		}
	}
	content := "[mock completion for " + strings.TrimSpace(last) + "]"
	return consumer(Chunk{
		SessionID: req.SessionID,
		Content:   content,
		Partial:   false,
		Latency:   20 * time.Millisecond,
		TraceID:   req.TraceID,
	})
}
