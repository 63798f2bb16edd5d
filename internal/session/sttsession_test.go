package session

import (
	"context"
	"testing"

	"github.com/loqalabs/loqa-voxd/internal/stt"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

type fakeRecognizer struct {
	partials []string
	result   stt.TranscriptResult
	err      error
}

func (f fakeRecognizer) Transcribe(_ context.Context, _ []byte, _, _ int, _ string, onPartial func(stt.TranscriptResult) error) (stt.TranscriptResult, error) {
	if onPartial != nil {
		for _, p := range f.partials {
			if err := onPartial(stt.TranscriptResult{Text: p}); err != nil {
				return stt.TranscriptResult{}, err
			}
		}
	}
	return f.result, f.err
}

func TestSTTSessionOrdering(t *testing.T) {
	w := &recordingWriter{}
	rec := fakeRecognizer{
		partials: []string{"hello", "hello there"},
		result:   stt.TranscriptResult{Text: "hello there"},
	}
	s := NewSTTSession(rec, w, func() {})
	ctx := context.Background()

	if err := s.HandleTranscribe(wyoming.Transcribe{Language: "en-US"}); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if err := s.HandleAudioStart(wyoming.AudioStart{AudioFormat: wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}}); err != nil {
		t.Fatalf("audio-start: %v", err)
	}
	if err := s.HandleAudioChunk([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("audio-chunk: %v", err)
	}
	if err := s.HandleAudioStop(ctx); err != nil {
		t.Fatalf("audio-stop: %v", err)
	}

	wantTags := []wyoming.Tag{
		wyoming.TagTranscriptStart,
		wyoming.TagTranscriptChunk,
		wyoming.TagTranscriptChunk,
		wyoming.TagTranscript,
		wyoming.TagTranscriptStop,
	}
	if len(w.tags) != len(wantTags) {
		t.Fatalf("got tags %v, want %v", w.tags, wantTags)
	}
	for i, tag := range wantTags {
		if w.tags[i] != tag {
			t.Errorf("tag[%d] = %s, want %s", i, w.tags[i], tag)
		}
	}

	chunk1 := w.events[1].(wyoming.TranscriptChunk)
	chunk2 := w.events[2].(wyoming.TranscriptChunk)
	if chunk1.Text != "hello" || chunk2.Text != "hello there" {
		t.Errorf("expected monotonically growing partial text, got %q then %q", chunk1.Text, chunk2.Text)
	}

	transcriptEvent := w.events[3].(wyoming.Transcript)
	if transcriptEvent.Text != "hello there" {
		t.Errorf("final transcript text = %q", transcriptEvent.Text)
	}
}

func TestSTTEventsOutsideCollectingAreDiscarded(t *testing.T) {
	w := &recordingWriter{}
	rec := fakeRecognizer{}
	s := NewSTTSession(rec, w, func() {})
	ctx := context.Background()

	if err := s.HandleAudioChunk([]byte{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.HandleAudioStop(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.events) != 0 {
		t.Fatalf("expected no frames emitted while idle, got %d", len(w.events))
	}
}

func TestSTTInvalidAudioFormatRejected(t *testing.T) {
	w := &recordingWriter{}
	rec := fakeRecognizer{}
	s := NewSTTSession(rec, w, func() {})

	_ = s.HandleTranscribe(wyoming.Transcribe{})
	err := s.HandleAudioStart(wyoming.AudioStart{AudioFormat: wyoming.AudioFormat{Rate: 16000, Width: 3, Channels: 1}})
	if err == nil {
		t.Fatalf("expected error for invalid width")
	}
}

func TestSTTNoChunkEmittedForEmptyTranscript(t *testing.T) {
	w := &recordingWriter{}
	rec := fakeRecognizer{result: stt.TranscriptResult{Text: ""}}
	s := NewSTTSession(rec, w, func() {})
	ctx := context.Background()

	_ = s.HandleTranscribe(wyoming.Transcribe{})
	_ = s.HandleAudioStart(wyoming.AudioStart{AudioFormat: wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}})
	_ = s.HandleAudioStop(ctx)

	wantTags := []wyoming.Tag{wyoming.TagTranscriptStart, wyoming.TagTranscript, wyoming.TagTranscriptStop}
	if len(w.tags) != len(wantTags) {
		t.Fatalf("got tags %v, want %v", w.tags, wantTags)
	}
}
