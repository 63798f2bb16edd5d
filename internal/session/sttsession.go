package session

import (
	"context"

	"github.com/loqalabs/loqa-voxd/internal/protocolerr"
	"github.com/loqalabs/loqa-voxd/internal/stt"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

// STTSession implements the streaming speech-to-text state machine (C5):
// Idle / Collecting(ctx). Events received outside Collecting are silently
// discarded, per the transition table.
type STTSession struct {
	recognizer  stt.Recognizer
	out         FrameWriter
	onWorkerErr func()

	collecting bool
	language   string
	buffer     []byte
	format     wyoming.AudioFormat
	haveFormat bool
}

// NewSTTSession constructs an idle STT session bound to one connection's
// writer and recognizer backend.
func NewSTTSession(recognizer stt.Recognizer, out FrameWriter, onWorkerErr func()) *STTSession {
	return &STTSession{recognizer: recognizer, out: out, onWorkerErr: onWorkerErr}
}

// HandleTranscribe opens a new collecting session.
func (s *STTSession) HandleTranscribe(ev wyoming.Transcribe) error {
	s.collecting = true
	s.language = ev.Language
	s.buffer = s.buffer[:0]
	s.haveFormat = false
	return nil
}

// HandleAudioStart captures the PCM format the client declares for this
// utterance.
func (s *STTSession) HandleAudioStart(ev wyoming.AudioStart) error {
	if !s.collecting {
		return nil
	}
	if err := ev.AudioFormat.Validate(); err != nil {
		return err
	}
	s.format = ev.AudioFormat
	s.haveFormat = true
	return nil
}

// HandleAudioChunk appends payload bytes to the utterance buffer.
func (s *STTSession) HandleAudioChunk(payload []byte) error {
	if !s.collecting {
		return nil
	}
	s.buffer = append(s.buffer, payload...)
	return nil
}

// HandleAudioStop runs transcription to completion, emitting
// transcript-start, zero or more transcript-chunk frames carrying the
// recognizer's real interim hypotheses, the final transcript, then
// transcript-stop — in that order, per the ordering guarantee.
func (s *STTSession) HandleAudioStop(ctx context.Context) error {
	if !s.collecting {
		return nil
	}
	if !s.haveFormat {
		return &protocolerr.InvalidAudioFormat{Detail: "audio-stop received before a valid audio-start"}
	}

	if err := s.out.WriteEvent(wyoming.TranscriptStart{Language: s.language}, nil); err != nil {
		return err
	}

	onPartial := func(partial stt.TranscriptResult) error {
		if partial.Text == "" {
			return nil
		}
		return s.out.WriteEvent(wyoming.TranscriptChunk{Text: partial.Text}, nil)
	}

	result, err := s.recognizer.Transcribe(ctx, s.buffer, s.format.Rate, s.format.Channels, s.language, onPartial)
	s.collecting = false
	s.buffer = nil
	if err != nil {
		s.onWorkerErr()
		return &protocolerr.Worker{Err: err, Fatal: true}
	}

	if err := s.out.WriteEvent(wyoming.Transcript{Text: result.Text}, nil); err != nil {
		return err
	}
	return s.out.WriteEvent(wyoming.TranscriptStop{}, nil)
}
