package tts

import (
	"context"
	"testing"

	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

func TestMockSynthProducesFinalSilenceChunk(t *testing.T) {
	synth := NewMockSynth()
	req := SynthRequest{
		SessionID: "sess-1",
		Text:      "hello",
		Format:    wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1},
	}

	chunks, errs := synth.Synthesize(context.Background(), req)

	select {
	case chunk, ok := <-chunks:
		if !ok {
			t.Fatal("expected a chunk, channel closed early")
		}
		if !chunk.Final {
			t.Fatal("expected the mock's only chunk to be final")
		}
		if chunk.SessionID != "sess-1" {
			t.Fatalf("expected session id to propagate, got %q", chunk.SessionID)
		}
		if len(chunk.PCM) == 0 {
			t.Fatal("expected non-empty silence PCM")
		}
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMockSynthVoicesReturnsDefault(t *testing.T) {
	synth := NewMockSynth().(VoiceCatalog)
	voices, err := synth.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 1 || voices[0].Name != "default" {
		t.Fatalf("unexpected voices: %+v", voices)
	}
}
