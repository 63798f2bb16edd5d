package capability

import (
	"io"
	"log/slog"
	"testing"

	"github.com/loqalabs/loqa-voxd/internal/config"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnnouncerSnapshotReflectsDescribe(t *testing.T) {
	describe := func() wyoming.Info {
		return wyoming.Info{
			Asr: []wyoming.AsrProgram{{Name: "whisper", Installed: true}},
			Tts: []wyoming.TtsProgram{{Name: "mock", Installed: true}},
		}
	}
	a, err := NewAnnouncer(config.NodeConfig{ID: "node-1", Role: "gateway"}, nil, describe, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := a.Current()
	if snap.NodeID != "node-1" || len(snap.Asr) != 1 || len(snap.Tts) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestAnnouncerUpdateReplacesSnapshot(t *testing.T) {
	a, err := NewAnnouncer(config.NodeConfig{ID: "node-1"}, nil, func() wyoming.Info { return wyoming.Info{} }, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Update(wyoming.Info{Tts: []wyoming.TtsProgram{{Name: "exec"}, {Name: "mock"}}})
	if len(a.Current().Tts) != 2 {
		t.Fatalf("expected updated snapshot with 2 tts programs, got %+v", a.Current())
	}
}
