package wyoming

import (
	"encoding/json"
	"fmt"

	"github.com/loqalabs/loqa-voxd/internal/protocolerr"
	"github.com/loqalabs/loqa-voxd/internal/wireformat"
)

// Tag is one of the closed set of Wyoming event type strings.
type Tag string

const (
	TagDescribe          Tag = "describe"
	TagInfo              Tag = "info"
	TagSynthesize        Tag = "synthesize"
	TagTranscribe        Tag = "transcribe"
	TagAudioStart        Tag = "audio-start"
	TagAudioChunk        Tag = "audio-chunk"
	TagAudioStop         Tag = "audio-stop"
	TagTranscript        Tag = "transcript"
	TagTranscriptStart   Tag = "transcript-start"
	TagTranscriptChunk   Tag = "transcript-chunk"
	TagTranscriptStop    Tag = "transcript-stop"
	TagSynthesizeStart   Tag = "synthesize-start"
	TagSynthesizeChunk   Tag = "synthesize-chunk"
	TagSynthesizeStop    Tag = "synthesize-stop"
	TagSynthesizeStopped Tag = "synthesize-stopped"
)

// Event is implemented by every member of the closed event set. The
// unexported method seals the interface so no type outside this package
// can satisfy it, giving DecodeEvent an exhaustive switch.
type Event interface {
	Tag() Tag
	wyomingEvent()
}

// --- describe / info -------------------------------------------------

type Describe struct{}

func (Describe) Tag() Tag { return TagDescribe }
func (Describe) wyomingEvent() {}

type Attribution struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type AsrProgram struct {
	Name                        string      `json:"name"`
	Attribution                 Attribution `json:"attribution"`
	Installed                   bool        `json:"installed"`
	Languages                   []string    `json:"languages"`
	SupportsTranscriptStreaming bool        `json:"supports_transcript_streaming"`
}

type TtsVoice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Speaker  string `json:"speaker,omitempty"`
}

type TtsProgram struct {
	Name                        string      `json:"name"`
	Attribution                 Attribution `json:"attribution"`
	Installed                   bool        `json:"installed"`
	Voices                      []TtsVoice  `json:"voices"`
	SupportsSynthesizeStreaming bool        `json:"supports_synthesize_streaming"`
}

type Info struct {
	Asr []AsrProgram `json:"asr"`
	Tts []TtsProgram `json:"tts"`
}

func (Info) Tag() Tag { return TagInfo }
func (Info) wyomingEvent() {}

// --- TTS ---------------------------------------------------------------

type Synthesize struct {
	Text  string         `json:"text"`
	Voice *VoiceSelector `json:"voice,omitempty"`
}

func (Synthesize) Tag() Tag { return TagSynthesize }
func (Synthesize) wyomingEvent() {}

type SynthesizeStart struct {
	Voice *VoiceSelector `json:"voice,omitempty"`
}

func (SynthesizeStart) Tag() Tag { return TagSynthesizeStart }
func (SynthesizeStart) wyomingEvent() {}

type SynthesizeChunk struct {
	Text string `json:"text"`
}

func (SynthesizeChunk) Tag() Tag { return TagSynthesizeChunk }
func (SynthesizeChunk) wyomingEvent() {}

type SynthesizeStop struct{}

func (SynthesizeStop) Tag() Tag { return TagSynthesizeStop }
func (SynthesizeStop) wyomingEvent() {}

type SynthesizeStopped struct{}

func (SynthesizeStopped) Tag() Tag { return TagSynthesizeStopped }
func (SynthesizeStopped) wyomingEvent() {}

// AudioStart carries the AudioFormat inline, emitted before the first
// audio-chunk of a synthesis or supplied by the client for an STT session.
type AudioStart struct {
	AudioFormat
}

func (AudioStart) Tag() Tag { return TagAudioStart }
func (AudioStart) wyomingEvent() {}

// AudioChunk carries the AudioFormat inline; raw PCM travels in the
// frame's binary payload, never in this struct.
type AudioChunk struct {
	AudioFormat
}

func (AudioChunk) Tag() Tag { return TagAudioChunk }
func (AudioChunk) wyomingEvent() {}

type AudioStop struct{}

func (AudioStop) Tag() Tag { return TagAudioStop }
func (AudioStop) wyomingEvent() {}

// --- STT -----------------------------------------------------------------

type Transcribe struct {
	Language string `json:"language,omitempty"`
}

func (Transcribe) Tag() Tag { return TagTranscribe }
func (Transcribe) wyomingEvent() {}

type TranscriptStart struct {
	Language string `json:"language,omitempty"`
}

func (TranscriptStart) Tag() Tag { return TagTranscriptStart }
func (TranscriptStart) wyomingEvent() {}

type TranscriptChunk struct {
	Text string `json:"text"`
}

func (TranscriptChunk) Tag() Tag { return TagTranscriptChunk }
func (TranscriptChunk) wyomingEvent() {}

type Transcript struct {
	Text string `json:"text"`
}

func (Transcript) Tag() Tag { return TagTranscript }
func (Transcript) wyomingEvent() {}

type TranscriptStop struct{}

func (TranscriptStop) Tag() Tag { return TagTranscriptStop }
func (TranscriptStop) wyomingEvent() {}

// --- wire encode / decode -----------------------------------------------

// EncodeFrame serializes an Event (plus, for audio-chunk, a raw PCM
// payload — ignored for every other tag) into a wire Frame.
func EncodeFrame(e Event, payload []byte) (wireformat.Frame, error) {
	f := wireformat.Frame{Type: string(e.Tag())}
	if e.Tag() == TagAudioChunk {
		f.Payload = payload
	}

	data, hasData := dataFor(e)
	if hasData {
		b, err := json.Marshal(data)
		if err != nil {
			return wireformat.Frame{}, fmt.Errorf("wyoming: encode %s data: %w", e.Tag(), err)
		}
		f.Data = b
	}
	return f, nil
}

// dataFor returns the value to marshal as the frame's data segment, and
// whether one is needed at all (events with no fields send no data
// segment, per the frame codec's "omitted lengths mean zero" rule).
func dataFor(e Event) (any, bool) {
	switch v := e.(type) {
	case Describe, AudioStop, SynthesizeStop, SynthesizeStopped, TranscriptStop:
		return nil, false
	default:
		return v, true
	}
}

// DecodeEvent performs the exhaustive tag switch that recovers a typed
// Event from a decoded wire Frame.
func DecodeEvent(f wireformat.Frame) (Event, error) {
	switch Tag(f.Type) {
	case TagDescribe:
		return Describe{}, nil
	case TagInfo:
		var v Info
		return v, unmarshalIfPresent(f.Data, &v)
	case TagSynthesize:
		var v Synthesize
		return v, unmarshalIfPresent(f.Data, &v)
	case TagSynthesizeStart:
		var v SynthesizeStart
		return v, unmarshalIfPresent(f.Data, &v)
	case TagSynthesizeChunk:
		var v SynthesizeChunk
		return v, unmarshalIfPresent(f.Data, &v)
	case TagSynthesizeStop:
		return SynthesizeStop{}, nil
	case TagSynthesizeStopped:
		return SynthesizeStopped{}, nil
	case TagAudioStart:
		var v AudioStart
		return v, unmarshalIfPresent(f.Data, &v)
	case TagAudioChunk:
		var v AudioChunk
		return v, unmarshalIfPresent(f.Data, &v)
	case TagAudioStop:
		return AudioStop{}, nil
	case TagTranscribe:
		var v Transcribe
		return v, unmarshalIfPresent(f.Data, &v)
	case TagTranscriptStart:
		var v TranscriptStart
		return v, unmarshalIfPresent(f.Data, &v)
	case TagTranscriptChunk:
		var v TranscriptChunk
		return v, unmarshalIfPresent(f.Data, &v)
	case TagTranscript:
		var v Transcript
		return v, unmarshalIfPresent(f.Data, &v)
	case TagTranscriptStop:
		return TranscriptStop{}, nil
	default:
		return nil, &protocolerr.EventSchema{Err: fmt.Errorf("unknown event tag %q", f.Type)}
	}
}

func unmarshalIfPresent(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &protocolerr.EventSchema{Err: err}
	}
	return nil
}
