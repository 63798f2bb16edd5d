package tts

import (
	"context"

	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

// StaticCatalog wraps a fixed voice list, used for exec-mode backends that
// advertise their installed voices through configuration rather than a
// runtime query.
type StaticCatalog struct {
	voices []wyoming.TtsVoice
}

// NewStaticCatalog builds a VoiceCatalog backed by a configured voice list.
func NewStaticCatalog(voices []wyoming.TtsVoice) *StaticCatalog {
	return &StaticCatalog{voices: voices}
}

func (c *StaticCatalog) Voices(_ context.Context) ([]wyoming.TtsVoice, error) {
	out := make([]wyoming.TtsVoice, len(c.voices))
	copy(out, c.voices)
	return out, nil
}
