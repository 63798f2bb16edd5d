// Package stt provides the speech-to-text backend adapters behind the STT
// session machine: a mock for development, an exec adapter that shells out
// to an external recognizer, and an on-device whisper.cpp binding.
package stt

import "context"

// TranscriptResult captures recognizer output for one utterance.
type TranscriptResult struct {
	Text       string
	Confidence float64
}

// Recognizer abstracts STT backends. Transcribe runs recognition over the
// full accumulated PCM buffer for one utterance. onPartial, if non-nil, is
// invoked zero or more times, in order, with interim hypotheses as they
// become available; an error returned from onPartial aborts the call. The
// return value is the terminal transcript for the utterance.
type Recognizer interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate, channels int, language string, onPartial func(TranscriptResult) error) (TranscriptResult, error)
}
