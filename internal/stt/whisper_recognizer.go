package stt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// whisperRecognizer runs fully on-device transcription against a local
// ggml model file via whisper.cpp's cgo bindings. whisper.cpp contexts are
// not safe for concurrent Process calls against one model, so access is
// serialized with a mutex; a session's one-utterance-at-a-time contract
// means this never becomes a bottleneck in practice.
type whisperRecognizer struct {
	model    whisper.Model
	language string
	threads  int
	mu       sync.Mutex
}

// NewWhisperRecognizer loads a ggml model file once at startup. Loading is
// the expensive step; Transcribe only pays for a fresh Context per call.
func NewWhisperRecognizer(modelPath, language string, threads int) (Recognizer, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", modelPath, err)
	}
	return &whisperRecognizer{model: model, language: language, threads: threads}, nil
}

// Transcribe runs whisper.cpp's encoder/decoder over the full utterance,
// then walks the decoded segments with NextSegment, emitting a growing
// partial (the text of all segments so far) after each one. Partials are
// emitted only after Process has finished decoding the whole utterance.
func (r *whisperRecognizer) Transcribe(ctx context.Context, pcm []byte, sampleRate, channels int, language string, onPartial func(TranscriptResult) error) (TranscriptResult, error) {
	samples, err := pcm16ToFloat32(pcm, channels)
	if err != nil {
		return TranscriptResult{}, err
	}
	if sampleRate != whisper.SampleRate {
		return TranscriptResult{}, fmt.Errorf("whisper requires %dHz input, got %dHz", whisper.SampleRate, sampleRate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	wctx, err := r.model.NewContext()
	if err != nil {
		return TranscriptResult{}, fmt.Errorf("new whisper context: %w", err)
	}
	if r.threads > 0 {
		wctx.SetThreads(uint(r.threads))
	}
	lang := language
	if lang == "" {
		lang = r.language
	}
	if lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			return TranscriptResult{}, fmt.Errorf("set whisper language: %w", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- wctx.Process(samples, nil, nil) }()
	select {
	case <-ctx.Done():
		return TranscriptResult{}, ctx.Err()
	case err := <-done:
		if err != nil {
			return TranscriptResult{}, fmt.Errorf("whisper process: %w", err)
		}
	}

	var sb strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		sb.WriteString(seg.Text)
		if onPartial != nil {
			if err := onPartial(TranscriptResult{Text: strings.TrimSpace(sb.String())}); err != nil {
				return TranscriptResult{}, err
			}
		}
	}
	return TranscriptResult{Text: strings.TrimSpace(sb.String()), Confidence: 1}, nil
}

// pcm16ToFloat32 converts interleaved little-endian 16-bit PCM into the
// normalized mono float32 samples whisper.cpp expects, downmixing
// multi-channel input by averaging.
func pcm16ToFloat32(pcm []byte, channels int) ([]float32, error) {
	if channels < 1 {
		channels = 1
	}
	frameBytes := 2 * channels
	if len(pcm)%frameBytes != 0 {
		return nil, fmt.Errorf("pcm payload not aligned to %d-byte frames", frameBytes)
	}
	frames := len(pcm) / frameBytes
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*2
			sample := int16(uint16(pcm[off]) | uint16(pcm[off+1])<<8)
			sum += int32(sample)
		}
		avg := float32(sum) / float32(channels)
		out[i] = avg / 32768.0
	}
	return out, nil
}
