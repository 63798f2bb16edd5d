package stt

import (
	"context"
	"fmt"
	"strings"
)

type mockRecognizer struct{}

func NewMockRecognizer() Recognizer {
	return &mockRecognizer{}
}

// Transcribe fabricates a short transcript for development, emitting it as
// a sequence of growing partial hypotheses before returning the complete
// text, so callers exercise the same transcript-chunk sequencing a real
// streaming backend produces.
func (m *mockRecognizer) Transcribe(ctx context.Context, pcm []byte, _, _ int, language string, onPartial func(TranscriptResult) error) (TranscriptResult, error) {
	lang := language
	if lang == "" {
		lang = "und"
	}
	final := fmt.Sprintf("mock transcript language=%s length=%d", lang, len(pcm))

	if onPartial != nil {
		words := strings.Fields(final)
		for i := 1; i < len(words); i++ {
			select {
			case <-ctx.Done():
				return TranscriptResult{}, ctx.Err()
			default:
			}
			if err := onPartial(TranscriptResult{Text: strings.Join(words[:i], " ")}); err != nil {
				return TranscriptResult{}, err
			}
		}
	}

	return TranscriptResult{Text: final, Confidence: 0}, nil
}
