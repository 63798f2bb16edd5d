// Package tts provides the text-to-speech backend adapters used by the TTS
// session machine: a mock for development and an exec adapter that shells
// out to an external synthesizer.
package tts

import (
	"context"

	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

// SynthRequest contains parameters for one sentence-level synthesis call.
type SynthRequest struct {
	SessionID string
	Text      string
	SSML      bool
	Voice     wyoming.VoiceSelector
	Format    wyoming.AudioFormat
}

// SynthChunk contains one slice of PCM output for a synthesis call.
type SynthChunk struct {
	SessionID string
	Sequence  int
	Format    wyoming.AudioFormat
	PCM       []byte
	Final     bool
}

// Synthesizer is the contract every TTS backend satisfies. Synthesize
// streams PCM chunks as they become available; the error channel carries
// at most one value and is closed alongside the chunk channel.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}

// VoiceCatalog is implemented by backends that can enumerate the voices
// they support, backing the "info" event's tts voice list and the
// /api/wyoming/tts/voices HTTP endpoint.
type VoiceCatalog interface {
	Voices(ctx context.Context) ([]wyoming.TtsVoice, error)
}
