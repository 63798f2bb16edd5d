package wyoming

import (
	"testing"
	"time"
)

func TestAudioFormatValidateRejectsBadWidth(t *testing.T) {
	f := AudioFormat{Rate: 16000, Width: 3, Channels: 1}
	if err := f.Validate(); err == nil {
		t.Fatal("expected an error for an unsupported sample width")
	}
}

func TestAudioFormatValidateRejectsNonPositiveRate(t *testing.T) {
	f := AudioFormat{Rate: 0, Width: 2, Channels: 1}
	if err := f.Validate(); err == nil {
		t.Fatal("expected an error for a zero sample rate")
	}
}

func TestAudioFormatValidateAcceptsWellFormedFormat(t *testing.T) {
	f := AudioFormat{Rate: 16000, Width: 2, Channels: 1}
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAudioFormatSilenceIsFrameAligned(t *testing.T) {
	f := AudioFormat{Rate: 16000, Width: 2, Channels: 1}
	buf := f.Silence(250 * time.Millisecond)
	frame := f.Width * f.Channels
	if len(buf)%frame != 0 {
		t.Fatalf("expected frame-aligned silence buffer, got %d bytes for frame size %d", len(buf), frame)
	}
	if len(buf) == 0 {
		t.Fatal("expected a non-empty silence buffer for a positive duration")
	}
}

func TestAudioFormatSilenceZeroDuration(t *testing.T) {
	f := AudioFormat{Rate: 16000, Width: 2, Channels: 1}
	if buf := f.Silence(0); buf != nil {
		t.Fatalf("expected nil silence buffer for zero duration, got %d bytes", len(buf))
	}
}
