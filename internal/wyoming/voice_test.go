package wyoming

import "testing"

func TestResolveVoicePrefersExplicitName(t *testing.T) {
	explicit := VoiceSelector{Name: "amy"}
	persisted := VoiceSelector{Name: "brian"}
	backend := VoiceSelector{Name: "default"}

	got := ResolveVoice(explicit, persisted, backend)
	if got.Name != "amy" {
		t.Fatalf("expected explicit name to win, got %+v", got)
	}
}

func TestResolveVoicePrefersExplicitLanguageOverPersisted(t *testing.T) {
	explicit := VoiceSelector{Language: "fr-FR"}
	persisted := VoiceSelector{Name: "brian"}
	backend := VoiceSelector{Name: "default"}

	got := ResolveVoice(explicit, persisted, backend)
	if got.Language != "fr-FR" {
		t.Fatalf("expected explicit language to win, got %+v", got)
	}
}

func TestResolveVoiceFallsBackToPersistedDefault(t *testing.T) {
	got := ResolveVoice(VoiceSelector{}, VoiceSelector{Name: "brian"}, VoiceSelector{Name: "default"})
	if got.Name != "brian" {
		t.Fatalf("expected persisted default to win, got %+v", got)
	}
}

func TestResolveVoiceFallsBackToBackendDefault(t *testing.T) {
	got := ResolveVoice(VoiceSelector{}, VoiceSelector{}, VoiceSelector{Name: "default"})
	if got.Name != "default" {
		t.Fatalf("expected backend default to win, got %+v", got)
	}
}
