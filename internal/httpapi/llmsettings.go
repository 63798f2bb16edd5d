package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
)

// LLMSettings is the mutable subset of LLM configuration exposed over
// /api/llm/settings: the model new chat completions default to, and the
// sampling parameters applied when a request omits them.
type LLMSettings struct {
	DefaultModel string  `json:"default_model"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
}

// LLMSettingsStore guards LLMSettings the same way SettingsStore guards
// WyomingSettings: readers see a consistent snapshot, writers replace the
// whole value after validation.
type LLMSettingsStore struct {
	mu      sync.RWMutex
	current LLMSettings
}

func NewLLMSettingsStore(initial LLMSettings) *LLMSettingsStore {
	return &LLMSettingsStore{current: initial}
}

func (s *LLMSettingsStore) Get() LLMSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *LLMSettingsStore) Apply(candidate LLMSettings) error {
	if candidate.MaxTokens < 0 {
		return errTooFewTokens
	}
	if candidate.Temperature < 0 || candidate.Temperature > 2 {
		return errBadTemperature
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = candidate
	return nil
}

var (
	errTooFewTokens   = httpError("max_tokens must be >= 0")
	errBadTemperature = httpError("temperature must be between 0 and 2")
)

type httpError string

func (e httpError) Error() string { return string(e) }

func (h *handler) getLLMSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.LLMSettings.Get())
}

func (h *handler) postLLMSettings(w http.ResponseWriter, r *http.Request) {
	var candidate LLMSettings
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}
	if err := h.deps.LLMSettings.Apply(candidate); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "settings": candidate})
}
