package wyoming

import (
	"fmt"
	"time"

	"github.com/loqalabs/loqa-voxd/internal/protocolerr"
)

// AudioFormat describes interleaved little-endian PCM: rate in Hz, width in
// bytes per sample (2 or 4), and channel count. It is inlined into the
// audio-start and audio-chunk event data JSON.
type AudioFormat struct {
	Rate     int `json:"rate"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

// Validate enforces the session-wide STT invariant: width ∈ {2,4},
// channels ≥ 1, rate > 0.
func (f AudioFormat) Validate() error {
	if f.Width != 2 && f.Width != 4 {
		return &protocolerr.InvalidAudioFormat{Detail: fmt.Sprintf("width must be 2 or 4, got %d", f.Width)}
	}
	if f.Channels < 1 {
		return &protocolerr.InvalidAudioFormat{Detail: fmt.Sprintf("channels must be >= 1, got %d", f.Channels)}
	}
	if f.Rate <= 0 {
		return &protocolerr.InvalidAudioFormat{Detail: fmt.Sprintf("rate must be > 0, got %d", f.Rate)}
	}
	return nil
}

// BytesPerSecond returns the number of PCM bytes one second of audio in
// this format occupies.
func (f AudioFormat) BytesPerSecond() int {
	return f.Rate * f.Width * f.Channels
}

// Silence returns a zero-filled PCM buffer representing dur seconds of
// silence at this format, used for the inter-sentence pause in the TTS
// streaming drain algorithm.
func (f AudioFormat) Silence(dur time.Duration) []byte {
	if dur <= 0 {
		return nil
	}
	n := int(float64(f.BytesPerSecond()) * dur.Seconds())
	// Keep sample alignment: PCM buffers must be a whole number of frames.
	frame := f.Width * f.Channels
	if frame > 0 {
		n -= n % frame
	}
	if n <= 0 {
		return nil
	}
	return make([]byte, n)
}
