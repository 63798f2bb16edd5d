package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/loqalabs/loqa-voxd/internal/eventstore"
	"github.com/loqalabs/loqa-voxd/internal/llm"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolFunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type toolSpec struct {
	Type     string           `json:"type"`
	Function toolFunctionSpec `json:"function"`
}

type chatCompletionRequest struct {
	Model             string            `json:"model"`
	Messages          []chatMessage     `json:"messages"`
	Stream            bool              `json:"stream"`
	MaxTokens         int               `json:"max_tokens,omitempty"`
	Temperature       *float64          `json:"temperature,omitempty"`
	TopP              float64           `json:"top_p,omitempty"`
	RepetitionPenalty float64           `json:"repetition_penalty,omitempty"`
	AdditionalContext map[string]string `json:"additional_context,omitempty"`
	Tools             []toolSpec        `json:"tools,omitempty"`
}

// toolCallPayload is the wire shape of one tool call inside a delta or
// message. Function is a JSON-encoded string rather than a nested object:
// the downstream consumer this surface targets expects the function call
// serialized that way, not as structured JSON.
type toolCallPayload struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Function string `json:"function"`
}

type funcCallArgs struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func newToolCallPayload(tc *llm.ToolCall) []toolCallPayload {
	if tc == nil {
		return nil
	}
	encoded, _ := json.Marshal(funcCallArgs{Name: tc.Name, Arguments: tc.ArgumentsJSON})
	return []toolCallPayload{{Type: "function", Function: string(encoded)}}
}

type chatChoiceMessage struct {
	Role      string            `json:"role"`
	Content   string            `json:"content,omitempty"`
	ToolCalls []toolCallPayload `json:"tool_calls,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int               `json:"index"`
		Message      chatChoiceMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage chatUsage `json:"usage"`
}

type chatChoiceDelta struct {
	Role      string            `json:"role,omitempty"`
	Content   string            `json:"content,omitempty"`
	ToolCalls []toolCallPayload `json:"tool_calls,omitempty"`
}

type chatCompletionChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int             `json:"index"`
		Delta        chatChoiceDelta `json:"delta"`
		FinishReason *string         `json:"finish_reason"`
	} `json:"choices"`
}

func (h *handler) chatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid chat completion request: "+err.Error())
		return
	}

	llmReq := llm.Request{
		SessionID:         chatSessionID(r),
		Model:             req.Model,
		MaxTokens:         req.MaxTokens,
		TopP:              req.TopP,
		RepetitionPenalty: req.RepetitionPenalty,
		AdditionalContext: req.AdditionalContext,
		TraceID:           r.Header.Get("X-Trace-Id"),
	}
	if h.deps.LLMSettings != nil {
		settings := h.deps.LLMSettings.Get()
		if llmReq.Model == "" {
			llmReq.Model = settings.DefaultModel
		}
		if llmReq.MaxTokens == 0 {
			llmReq.MaxTokens = settings.MaxTokens
		}
		llmReq.Temperature = settings.Temperature
	}
	if req.Temperature != nil {
		llmReq.Temperature = *req.Temperature
	}
	for _, m := range req.Messages {
		llmReq.Messages = append(llmReq.Messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	for _, t := range req.Tools {
		llmReq.Tools = append(llmReq.Tools, llm.ToolSpec{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			ParamsJSON:  string(t.Function.Parameters),
		})
	}

	if h.deps.LLM == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "llm backend not configured")
		return
	}

	id := "chatcmpl-" + uuid.NewString()

	if h.deps.EventStore != nil {
		if err := h.deps.EventStore.AppendSession(r.Context(), llmReq.SessionID, "", ""); err == nil {
			evt := eventstore.Event{SessionID: llmReq.SessionID, TraceID: llmReq.TraceID, Type: "chat.completion", Level: "info", Category: "http"}
			if err := h.deps.EventStore.AppendEvent(r.Context(), evt); err != nil {
				h.deps.Logger.Debug("failed to append chat completion event", "err", err)
			}
		}
	}

	if req.Stream {
		h.streamChatCompletion(w, r, llmReq, id)
		return
	}
	h.nonStreamingChatCompletion(w, r, llmReq, id)
}

func (h *handler) nonStreamingChatCompletion(w http.ResponseWriter, r *http.Request, req llm.Request, id string) {
	var final llm.Chunk
	err := h.deps.LLM.Generate(r.Context(), req, func(c llm.Chunk) error {
		if !c.Partial {
			final = c
		}
		return nil
	})
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "llm generation failed: "+err.Error())
		return
	}

	resp := chatCompletionResponse{
		ID:     id,
		Object: "chat.completion",
		Model:  req.Model,
		Usage: chatUsage{
			PromptTokens:     final.PromptTokens,
			CompletionTokens: final.CompletionTokens,
			TotalTokens:      final.PromptTokens + final.CompletionTokens,
		},
	}
	resp.Choices = []struct {
		Index        int               `json:"index"`
		Message      chatChoiceMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	}{{
		Index: 0,
		Message: chatChoiceMessage{
			Role:      "assistant",
			Content:   final.Content,
			ToolCalls: newToolCallPayload(final.ToolCall),
		},
		FinishReason: "stop",
	}}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) streamChatCompletion(w http.ResponseWriter, r *http.Request, req llm.Request, id string) {
	sse, ok := newSSEWriter(w)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported by response writer")
		return
	}

	first := true
	err := h.deps.LLM.Generate(r.Context(), req, func(c llm.Chunk) error {
		chunk := chatCompletionChunk{ID: id, Object: "chat.completion.chunk", Model: req.Model}
		delta := chatChoiceDelta{Content: c.Content, ToolCalls: newToolCallPayload(c.ToolCall)}
		if first {
			delta.Role = "assistant"
			first = false
		}
		var finish *string
		if !c.Partial {
			reason := "stop"
			finish = &reason
		}
		chunk.Choices = []struct {
			Index        int             `json:"index"`
			Delta        chatChoiceDelta `json:"delta"`
			FinishReason *string         `json:"finish_reason"`
		}{{Index: 0, Delta: delta, FinishReason: finish}}
		return sse.writeJSON(chunk)
	})
	if err != nil {
		h.deps.Logger.Error("llm streaming failed", "err", err)
	}
	sse.writeDone()
}

// chatSessionID derives a per-request session identifier from the chi
// RequestID middleware's context value, falling back to a fresh uuid if
// the middleware chain wasn't applied (e.g. a handler invoked directly in
// a test).
func chatSessionID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
