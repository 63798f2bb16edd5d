package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/loqalabs/loqa-voxd/internal/tts"
)

// WyomingSettings is the mutable subset of runtime configuration exposed
// over HTTP: the default voice and language new sessions resolve to when
// a client omits an explicit VoiceSelector.
type WyomingSettings struct {
	DefaultVoice    string `json:"default_voice"`
	DefaultLanguage string `json:"default_language"`
}

// SettingsStore holds the current WyomingSettings behind a lock so readers
// (the session machines, other HTTP requests) observe a consistent
// snapshot while the settings handler mutates atomically on success only.
type SettingsStore struct {
	mu        sync.RWMutex
	current   WyomingSettings
	voices    tts.VoiceCatalog
	languages func() []string
}

// NewSettingsStore seeds the store with initial settings and the
// enumerations new candidates are validated against.
func NewSettingsStore(initial WyomingSettings, voices tts.VoiceCatalog, languages func() []string) *SettingsStore {
	return &SettingsStore{current: initial, voices: voices, languages: languages}
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() WyomingSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply validates candidate against the voice and language enumerations
// and, only if valid, atomically swaps it in. No partial mutation occurs
// on a validation failure.
func (s *SettingsStore) Apply(ctx context.Context, candidate WyomingSettings) error {
	if candidate.DefaultVoice != "" && s.voices != nil {
		voices, err := s.voices.Voices(ctx)
		if err != nil {
			return fmt.Errorf("list voices: %w", err)
		}
		names := make([]string, len(voices))
		for i, v := range voices {
			names[i] = v.Name
		}
		if !containsString(names, candidate.DefaultVoice) {
			return fmt.Errorf("unknown voice %q", candidate.DefaultVoice)
		}
	}
	if candidate.DefaultLanguage != "" && s.languages != nil {
		if !containsString(s.languages(), candidate.DefaultLanguage) {
			return fmt.Errorf("unknown language %q", candidate.DefaultLanguage)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = candidate
	return nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func (h *handler) getWyomingSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Settings.Get())
}

func (h *handler) postWyomingSettings(w http.ResponseWriter, r *http.Request) {
	var candidate WyomingSettings
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}
	if err := h.deps.Settings.Apply(r.Context(), candidate); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "settings applied"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
