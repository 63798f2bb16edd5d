package httpapi

import (
	"context"
	"testing"

	"github.com/loqalabs/loqa-voxd/internal/tts"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

func TestSettingsStoreRejectsUnknownVoice(t *testing.T) {
	catalog := tts.NewStaticCatalog([]wyoming.TtsVoice{{Name: "alpha", Language: "en-US"}})
	s := NewSettingsStore(WyomingSettings{DefaultVoice: "alpha", DefaultLanguage: "en-US"}, catalog, func() []string { return []string{"en-US"} })

	err := s.Apply(context.Background(), WyomingSettings{DefaultVoice: "missing", DefaultLanguage: "en-US"})
	if err == nil {
		t.Fatalf("expected error for unknown voice")
	}
	if got := s.Get(); got.DefaultVoice != "alpha" {
		t.Fatalf("expected no mutation on validation failure, got %+v", got)
	}
}

func TestSettingsStoreAppliesValidCandidate(t *testing.T) {
	catalog := tts.NewStaticCatalog([]wyoming.TtsVoice{{Name: "alpha", Language: "en-US"}, {Name: "beta", Language: "es-ES"}})
	s := NewSettingsStore(WyomingSettings{DefaultVoice: "alpha", DefaultLanguage: "en-US"}, catalog, func() []string { return []string{"en-US", "es-ES"} })

	if err := s.Apply(context.Background(), WyomingSettings{DefaultVoice: "beta", DefaultLanguage: "es-ES"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Get()
	if got.DefaultVoice != "beta" || got.DefaultLanguage != "es-ES" {
		t.Fatalf("expected settings applied, got %+v", got)
	}
}

func TestLLMSettingsStoreRejectsBadTemperature(t *testing.T) {
	s := NewLLMSettingsStore(LLMSettings{DefaultModel: "m", Temperature: 0.5})
	if err := s.Apply(LLMSettings{DefaultModel: "m", Temperature: 5}); err == nil {
		t.Fatalf("expected error for out-of-range temperature")
	}
	if got := s.Get().Temperature; got != 0.5 {
		t.Fatalf("expected no mutation, got %v", got)
	}
}
