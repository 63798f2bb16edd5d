package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

type mockSynth struct{}

// NewMockSynth returns a Synthesizer that fabricates a short burst of
// silence for every request, for use in development and tests.
func NewMockSynth() Synthesizer {
	return &mockSynth{}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			return
		case <-time.After(20 * time.Millisecond):
		}
		chunks <- SynthChunk{
			SessionID: req.SessionID,
			Sequence:  0,
			Format:    req.Format,
			PCM:       req.Format.Silence(200 * time.Millisecond),
			Final:     true,
		}
	}()
	return chunks, errs
}

func (m *mockSynth) Voices(_ context.Context) ([]wyoming.TtsVoice, error) {
	return []wyoming.TtsVoice{
		{Name: "default", Language: "en-US", Speaker: fmt.Sprintf("mock-%d", 1)},
	}, nil
}
