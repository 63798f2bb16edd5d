package discovery

import (
	"io"
	"log/slog"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAdvertiserBuildsInstanceName(t *testing.T) {
	a := NewAdvertiser("loqa-voxd", 10200, newTestLogger())
	if a.port != 10200 {
		t.Fatalf("expected port 10200, got %d", a.port)
	}
	if a.instance == "" {
		t.Fatalf("expected non-empty instance name")
	}
	if a.hostLabel == "" {
		t.Fatalf("expected non-empty host label")
	}
}

func TestBuildResponseProducesWyomingAnswers(t *testing.T) {
	a := NewAdvertiser("loqa-voxd", 10200, newTestLogger())
	resp, err := a.buildResponse(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp) == 0 {
		t.Fatalf("expected non-empty mDNS response")
	}
}
