// Package session implements the per-connection Wyoming streaming state
// machines: TTS (C4) and STT (C5).
package session

import (
	"context"
	"strings"
	"time"

	"github.com/loqalabs/loqa-voxd/internal/protocolerr"
	"github.com/loqalabs/loqa-voxd/internal/ssml"
	"github.com/loqalabs/loqa-voxd/internal/tts"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

// FrameWriter serializes outbound Wyoming events through one writer per
// connection so a session's frames never interleave with another
// worker's output on the same connection.
type FrameWriter interface {
	WriteEvent(e wyoming.Event, payload []byte) error
}

const maxNonStreamingChunkBytes = 2048

// TTSSessionConfig carries the tunables a TTS session needs from
// configuration.
type TTSSessionConfig struct {
	SentenceTimeoutBase time.Duration
	InterSentencePause  time.Duration
	BackendDefaultVoice wyoming.VoiceSelector
	PersistedDefault    wyoming.VoiceSelector
}

// TTSSession implements the streaming text-to-speech state machine (C4):
// Idle / Streaming(ctx), with sentence and SSML drain algorithms.
type TTSSession struct {
	synth       tts.Synthesizer
	out         FrameWriter
	cfg         TTSSessionConfig
	onWorkerErr func()

	streaming    bool
	textBuffer   string
	voice        wyoming.VoiceSelector
	audioStarted bool
	audioFormat  *wyoming.AudioFormat
	ssmlMode     bool
}

// NewTTSSession constructs an idle TTS session bound to one connection's
// writer and synthesizer backend.
func NewTTSSession(synth tts.Synthesizer, out FrameWriter, cfg TTSSessionConfig, onWorkerErr func()) *TTSSession {
	return &TTSSession{synth: synth, out: out, cfg: cfg, onWorkerErr: onWorkerErr}
}

// HandleSynthesize runs a complete one-shot synthesis. Per the transition
// table, it is ignored while a streaming session is already active.
func (s *TTSSession) HandleSynthesize(ctx context.Context, ev wyoming.Synthesize) error {
	if s.streaming {
		return nil
	}
	voice := resolveVoice(ev.Voice, s.cfg.PersistedDefault, s.cfg.BackendDefaultVoice)

	parts, asSSML := s.splitForSynthesis(ev.Text)

	var pcm []byte
	var format wyoming.AudioFormat
	for _, p := range parts {
		buf, f, err := s.synthesizeBuffered(ctx, p, asSSML, voice)
		if err != nil {
			s.onWorkerErr()
			return &protocolerr.Worker{Err: err, Fatal: true}
		}
		if format.Rate == 0 && f.Rate > 0 {
			format = f
		}
		pcm = append(pcm, buf...)
	}

	if err := s.out.WriteEvent(wyoming.AudioStart{AudioFormat: format}, nil); err != nil {
		return err
	}
	for offset := 0; offset < len(pcm); offset += maxNonStreamingChunkBytes {
		end := offset + maxNonStreamingChunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := s.out.WriteEvent(wyoming.AudioChunk{AudioFormat: format}, pcm[offset:end]); err != nil {
			return err
		}
	}
	return s.out.WriteEvent(wyoming.AudioStop{}, nil)
}

// splitForSynthesis applies the SSML detection heuristic and the
// escape-and-wrap safeguard to a one-shot synthesize request's text.
func (s *TTSSession) splitForSynthesis(text string) (parts []string, asSSML bool) {
	if ssml.LooksLikeSSML(text) {
		chunks, err := ssml.Chunk([]byte(text))
		if err != nil || len(chunks) == 0 {
			return []string{ssml.EscapeAndWrap(text)}, true
		}
		return chunks, true
	}
	if ssml.ContainsAngleBrackets(text) {
		return []string{ssml.EscapeAndWrap(text)}, true
	}
	return []string{text}, false
}

// HandleSynthesizeStart initializes a streaming session's context,
// resolving the effective voice for the session's lifetime.
func (s *TTSSession) HandleSynthesizeStart(ev wyoming.SynthesizeStart) error {
	s.voice = resolveVoice(ev.Voice, s.cfg.PersistedDefault, s.cfg.BackendDefaultVoice)
	s.streaming = true
	s.textBuffer = ""
	s.audioStarted = false
	s.audioFormat = nil
	s.ssmlMode = false
	return nil
}

// HandleSynthesizeChunk appends incoming text, switches to SSML mode once
// the buffer looks SSML-shaped, and drains whatever is ready to
// synthesize.
func (s *TTSSession) HandleSynthesizeChunk(ctx context.Context, ev wyoming.SynthesizeChunk) error {
	if !s.streaming {
		return &protocolerr.SessionStateViolation{Detail: "synthesize-chunk received without an active synthesize-start"}
	}
	s.textBuffer += ev.Text
	if !s.ssmlMode && ssml.LooksLikeSSML(s.textBuffer) {
		s.ssmlMode = true
	}

	var err error
	if s.ssmlMode {
		err = s.drainSSML(ctx)
	} else {
		err = s.drainPlain(ctx)
	}
	if err != nil {
		s.onWorkerErr()
		return &protocolerr.Worker{Err: err, Streamed: true}
	}
	return nil
}

// HandleSynthesizeStop awaits any pending drain, synthesizes whatever text
// remains, and closes the streaming session with audio-stop then
// synthesize-stopped, regardless of whether the final flush succeeded.
func (s *TTSSession) HandleSynthesizeStop(ctx context.Context) error {
	if !s.streaming {
		return &protocolerr.SessionStateViolation{Detail: "synthesize-stop received without an active synthesize-start"}
	}

	var drainErr error
	if s.ssmlMode {
		drainErr = s.drainSSML(ctx)
		if drainErr == nil && strings.TrimSpace(s.textBuffer) != "" {
			drainErr = s.synthesizeAndEmit(ctx, ssml.EscapeAndWrap(s.textBuffer), true, s.voice)
		}
	} else {
		drainErr = s.drainPlain(ctx)
		if drainErr == nil && s.textBuffer != "" {
			text := s.textBuffer
			asSSML := ssml.ContainsAngleBrackets(text)
			if asSSML {
				text = ssml.EscapeAndWrap(text)
			}
			drainErr = s.synthesizeAndEmit(ctx, text, asSSML, s.voice)
		}
	}
	s.textBuffer = ""
	s.streaming = false

	if err := s.out.WriteEvent(wyoming.AudioStop{}, nil); err != nil {
		return err
	}
	if err := s.out.WriteEvent(wyoming.SynthesizeStopped{}, nil); err != nil {
		return err
	}
	if drainErr != nil {
		s.onWorkerErr()
		return &protocolerr.Worker{Err: drainErr, Streamed: true}
	}
	return nil
}

// drainPlain repeatedly extracts the first complete sentence from
// textBuffer and synthesizes it, stopping once no complete sentence
// remains.
func (s *TTSSession) drainPlain(ctx context.Context) error {
	for {
		sentence, remainder, ok := ssml.FirstSentence(s.textBuffer, s.voice.Language)
		if !ok {
			return nil
		}
		s.textBuffer = remainder

		text := sentence
		asSSML := ssml.ContainsAngleBrackets(text)
		if asSSML {
			text = ssml.EscapeAndWrap(text)
		}
		if err := s.synthesizeAndEmit(ctx, text, asSSML, s.voice); err != nil {
			return err
		}
		if err := s.emitPause(); err != nil {
			return err
		}
	}
}

// drainSSML synthesizes every complete <speak>...</speak> span present in
// textBuffer, one chunk per first-level child, leaving any residue in the
// buffer and demoting ssmlMode when the residue no longer looks SSML.
func (s *TTSSession) drainSSML(ctx context.Context) error {
	for ssml.HasCompleteSpeak(s.textBuffer) {
		lower := strings.ToLower(s.textBuffer)
		end := strings.Index(lower, "</speak>") + len("</speak>")
		doc := s.textBuffer[:end]
		residue := s.textBuffer[end:]

		chunks, err := ssml.Chunk([]byte(doc))
		if err != nil {
			if emitErr := s.synthesizeAndEmit(ctx, ssml.EscapeAndWrap(doc), true, s.voice); emitErr != nil {
				return emitErr
			}
		} else {
			for _, c := range chunks {
				if err := s.synthesizeAndEmit(ctx, c, true, s.voice); err != nil {
					return err
				}
			}
		}

		s.textBuffer = residue
		if !ssml.LooksLikeSSML(s.textBuffer) {
			s.ssmlMode = false
			return nil
		}
	}
	return nil
}

// synthesizeAndEmit drives the synthesizer for one chunk of text, emitting
// audio-start (once, lazily, from the first non-empty buffer) and
// audio-chunk frames as PCM becomes available. A per-sentence timeout is
// non-fatal: whatever was captured by then is kept and the call returns.
func (s *TTSSession) synthesizeAndEmit(ctx context.Context, text string, asSSML bool, voice wyoming.VoiceSelector) error {
	return s.synthesize(ctx, text, asSSML, voice, s.emitAudioChunk)
}

// synthesizeBuffered drives the synthesizer for one chunk of text,
// aggregating all PCM into a single buffer instead of emitting frames
// immediately, for the non-streaming synthesize path.
func (s *TTSSession) synthesizeBuffered(ctx context.Context, text string, asSSML bool, voice wyoming.VoiceSelector) ([]byte, wyoming.AudioFormat, error) {
	var pcm []byte
	var format wyoming.AudioFormat
	err := s.synthesize(ctx, text, asSSML, voice, func(f wyoming.AudioFormat, buf []byte) error {
		if format.Rate == 0 && f.Rate > 0 {
			format = f
		}
		pcm = append(pcm, buf...)
		return nil
	})
	return pcm, format, err
}

func (s *TTSSession) synthesize(ctx context.Context, text string, asSSML bool, voice wyoming.VoiceSelector, onChunk func(wyoming.AudioFormat, []byte) error) error {
	deadline := s.cfg.SentenceTimeoutBase + time.Duration(float64(time.Second)*0.05*float64(len(text)))
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req := tts.SynthRequest{Text: text, SSML: asSSML, Voice: voice}
	chunkCh, errCh := s.synth.Synthesize(cctx, req)

	chunksOpen, errsOpen := true, true
	var workerErr error
	for chunksOpen || errsOpen {
		select {
		case c, ok := <-chunkCh:
			if !ok {
				chunksOpen = false
				continue
			}
			if len(c.PCM) == 0 {
				continue
			}
			if err := onChunk(c.Format, c.PCM); err != nil {
				return err
			}
		case err, ok := <-errCh:
			if !ok {
				errsOpen = false
				continue
			}
			if err != nil {
				workerErr = err
			}
		case <-cctx.Done():
			return nil
		}
	}
	return workerErr
}

func (s *TTSSession) emitAudioChunk(format wyoming.AudioFormat, pcm []byte) error {
	if !s.audioStarted {
		if err := s.out.WriteEvent(wyoming.AudioStart{AudioFormat: format}, nil); err != nil {
			return err
		}
		s.audioStarted = true
		captured := format
		s.audioFormat = &captured
	}
	return s.out.WriteEvent(wyoming.AudioChunk{AudioFormat: *s.audioFormat}, pcm)
}

func (s *TTSSession) emitPause() error {
	if s.cfg.InterSentencePause <= 0 || s.audioFormat == nil {
		return nil
	}
	silence := s.audioFormat.Silence(s.cfg.InterSentencePause)
	if len(silence) == 0 {
		return nil
	}
	return s.out.WriteEvent(wyoming.AudioChunk{AudioFormat: *s.audioFormat}, silence)
}

func resolveVoice(explicit *wyoming.VoiceSelector, persistedDefault, backendDefault wyoming.VoiceSelector) wyoming.VoiceSelector {
	var e wyoming.VoiceSelector
	if explicit != nil {
		e = *explicit
	}
	return wyoming.ResolveVoice(e, persistedDefault, backendDefault)
}
