package session

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-voxd/internal/tts"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

type recordingWriter struct {
	events []wyoming.Event
	tags   []wyoming.Tag
}

func (w *recordingWriter) WriteEvent(e wyoming.Event, _ []byte) error {
	w.events = append(w.events, e)
	w.tags = append(w.tags, e.Tag())
	return nil
}

func (w *recordingWriter) tagString() string {
	var sb strings.Builder
	for i, t := range w.tags {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(string(t))
	}
	return sb.String()
}

// splittingSynth returns one PCM chunk per call, sized to the text length
// plus one byte so tests can assert something was actually
// synthesized, without depending on real audio.
type splittingSynth struct{ calls []tts.SynthRequest }

func (s *splittingSynth) Synthesize(ctx context.Context, req tts.SynthRequest) (<-chan tts.SynthChunk, <-chan error) {
	s.calls = append(s.calls, req)
	chunks := make(chan tts.SynthChunk, 1)
	errs := make(chan error, 1)
	format := wyoming.AudioFormat{Rate: 22050, Width: 2, Channels: 1}
	chunks <- tts.SynthChunk{Format: format, PCM: make([]byte, len(req.Text)+1)}
	close(chunks)
	close(errs)
	return chunks, errs
}

func newTestTTSSession(synth tts.Synthesizer, w FrameWriter) *TTSSession {
	cfg := TTSSessionConfig{
		SentenceTimeoutBase: time.Second,
		InterSentencePause:  50 * time.Millisecond,
	}
	return NewTTSSession(synth, w, cfg, func() {})
}

func TestTTSStreamingTwoSentencesOrdering(t *testing.T) {
	w := &recordingWriter{}
	synth := &splittingSynth{}
	s := newTestTTSSession(synth, w)
	ctx := context.Background()

	if err := s.HandleSynthesizeStart(wyoming.SynthesizeStart{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.HandleSynthesizeChunk(ctx, wyoming.SynthesizeChunk{Text: "Hello world. How are"}); err != nil {
		t.Fatalf("chunk1: %v", err)
	}
	if err := s.HandleSynthesizeChunk(ctx, wyoming.SynthesizeChunk{Text: " you?"}); err != nil {
		t.Fatalf("chunk2: %v", err)
	}
	if err := s.HandleSynthesizeStop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	matched, err := regexp.MatchString(`^audio-start( audio-chunk)+ audio-stop synthesize-stopped$`, w.tagString())
	if err != nil {
		t.Fatalf("regexp: %v", err)
	}
	if !matched {
		t.Fatalf("tag sequence %q does not match audio-start (audio-chunk)* audio-stop synthesize-stopped", w.tagString())
	}

	if len(synth.calls) != 2 {
		t.Fatalf("expected 2 synthesize calls (two sentences), got %d: %+v", len(synth.calls), synth.calls)
	}
	if !strings.Contains(synth.calls[0].Text, "Hello world.") {
		t.Errorf("first call text = %q", synth.calls[0].Text)
	}
	if !strings.Contains(synth.calls[1].Text, "How are you?") {
		t.Errorf("second call text = %q", synth.calls[1].Text)
	}
}

func TestTTSAudioStartEmittedOnce(t *testing.T) {
	w := &recordingWriter{}
	synth := &splittingSynth{}
	s := newTestTTSSession(synth, w)
	ctx := context.Background()

	_ = s.HandleSynthesizeStart(wyoming.SynthesizeStart{})
	_ = s.HandleSynthesizeChunk(ctx, wyoming.SynthesizeChunk{Text: "One. Two. Three."})
	_ = s.HandleSynthesizeStop(ctx)

	count := 0
	for _, tag := range w.tags {
		if tag == wyoming.TagAudioStart {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one audio-start, got %d", count)
	}
}

func TestTTSStreamingSSMLTwoChildren(t *testing.T) {
	w := &recordingWriter{}
	synth := &splittingSynth{}
	s := newTestTTSSession(synth, w)
	ctx := context.Background()

	_ = s.HandleSynthesizeStart(wyoming.SynthesizeStart{})
	doc := "<speak><s>One.</s><s>Two.</s></speak>"
	if err := s.HandleSynthesizeChunk(ctx, wyoming.SynthesizeChunk{Text: doc}); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if err := s.HandleSynthesizeStop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if len(synth.calls) != 2 {
		t.Fatalf("expected 2 synthesize calls for 2 SSML children, got %d", len(synth.calls))
	}
	want0 := "<speak><s>One.</s></speak>"
	want1 := "<speak><s>Two.</s></speak>"
	if synth.calls[0].Text != want0 {
		t.Errorf("call 0 = %q, want %q", synth.calls[0].Text, want0)
	}
	if synth.calls[1].Text != want1 {
		t.Errorf("call 1 = %q, want %q", synth.calls[1].Text, want1)
	}

	matched, _ := regexp.MatchString(`^audio-start( audio-chunk)+ audio-stop synthesize-stopped$`, w.tagString())
	if !matched {
		t.Fatalf("tag sequence %q does not match expected regex", w.tagString())
	}
}

func TestTTSNonStreamingSynthesizeIgnoredWhileStreaming(t *testing.T) {
	w := &recordingWriter{}
	synth := &splittingSynth{}
	s := newTestTTSSession(synth, w)
	ctx := context.Background()

	_ = s.HandleSynthesizeStart(wyoming.SynthesizeStart{})
	if err := s.HandleSynthesize(ctx, wyoming.Synthesize{Text: "ignored"}); err != nil {
		t.Fatalf("expected ignored synthesize to return nil, got %v", err)
	}
	if len(w.events) != 0 {
		t.Fatalf("expected no frames emitted for ignored synthesize, got %d", len(w.events))
	}
}

func TestTTSOneShotSplitsAt2048Bytes(t *testing.T) {
	w := &recordingWriter{}
	// Produce a single PCM buffer bigger than 2048 bytes in one shot.
	synth := fixedPCMSynth{size: 5000}
	s := newTestTTSSession(synth, w)
	ctx := context.Background()

	if err := s.HandleSynthesize(ctx, wyoming.Synthesize{Text: "Hello world."}); err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	chunkCount := 0
	for i, e := range w.events {
		if w.tags[i] == wyoming.TagAudioChunk {
			chunkCount++
			_ = e
		}
	}
	if chunkCount != 3 { // 2048 + 2048 + 904
		t.Fatalf("expected 3 chunks for 5000 bytes, got %d", chunkCount)
	}
}

type fixedPCMSynth struct{ size int }

func (f fixedPCMSynth) Synthesize(ctx context.Context, req tts.SynthRequest) (<-chan tts.SynthChunk, <-chan error) {
	chunks := make(chan tts.SynthChunk, 1)
	errs := make(chan error, 1)
	chunks <- tts.SynthChunk{Format: wyoming.AudioFormat{Rate: 22050, Width: 2, Channels: 1}, PCM: make([]byte, f.size)}
	close(chunks)
	close(errs)
	return chunks, errs
}
