// Package capability announces this node's installed speech backends:
// the ASR/TTS programs the "describe" Wyoming event reports, published on
// the internal bus for any other process on the network to observe, and
// exposed as otel gauges. The /v1/models HTTP endpoint does not read it.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loqalabs/loqa-voxd/internal/bus"
	"github.com/loqalabs/loqa-voxd/internal/config"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Snapshot is this node's current capability set, derived from the
// installed backends rather than gossiped from peers: a voice gateway
// runs as a single process per device, so there is no node mesh to track.
type Snapshot struct {
	NodeID    string               `json:"node_id"`
	Role      string               `json:"role"`
	Asr       []wyoming.AsrProgram `json:"asr"`
	Tts       []wyoming.TtsProgram `json:"tts"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type announceMessage struct {
	Snapshot
}

// Announcer republishes this node's Snapshot on the bus whenever the
// backend set changes (e.g. after a settings mutation) and maintains
// otel gauges reporting how many ASR/TTS programs are installed.
type Announcer struct {
	cfg config.NodeConfig
	log *slog.Logger
	bus *bus.Client

	mu       sync.RWMutex
	current  Snapshot
	meter    metric.Meter
	asrGauge metric.Int64ObservableGauge
	ttsGauge metric.Int64ObservableGauge
}

// NewAnnouncer builds an Announcer and publishes the initial snapshot.
func NewAnnouncer(cfg config.NodeConfig, busClient *bus.Client, describe func() wyoming.Info, log *slog.Logger) (*Announcer, error) {
	a := &Announcer{
		cfg:   cfg,
		log:   log.With(slog.String("component", "capability-announcer")),
		bus:   busClient,
		meter: otel.Meter("github.com/loqalabs/loqa-voxd/capability"),
	}
	if err := a.initMetrics(); err != nil {
		a.log.Warn("failed to initialize capability metrics", slog.String("error", err.Error()))
	}
	a.Update(describe())
	return a, nil
}

// Update replaces the published snapshot and re-announces it on the bus.
// Call this after a settings mutation that could change the installed
// voice/language set, as well as once at startup.
func (a *Announcer) Update(info wyoming.Info) {
	snap := Snapshot{
		NodeID:    a.cfg.ID,
		Role:      a.cfg.Role,
		Asr:       info.Asr,
		Tts:       info.Tts,
		UpdatedAt: time.Now().UTC(),
	}
	a.mu.Lock()
	a.current = snap
	a.mu.Unlock()

	if a.bus == nil {
		return
	}
	payload, err := json.Marshal(announceMessage{Snapshot: snap})
	if err != nil {
		a.log.Warn("failed to marshal capability announcement", slog.String("error", err.Error()))
		return
	}
	if err := a.bus.Conn().Publish("ctrl.node.capabilities", payload); err != nil {
		a.log.Warn("failed to publish capability announcement", slog.String("error", err.Error()))
	}
}

// Current returns the most recently announced snapshot.
func (a *Announcer) Current() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *Announcer) initMetrics() error {
	if a.meter == nil {
		return nil
	}
	asrGauge, err := a.meter.Int64ObservableGauge("loqa.capability.asr_programs", metric.WithDescription("Installed ASR programs"))
	if err != nil {
		return err
	}
	ttsGauge, err := a.meter.Int64ObservableGauge("loqa.capability.tts_programs", metric.WithDescription("Installed TTS programs"))
	if err != nil {
		return fmt.Errorf("register tts gauge: %w", err)
	}
	a.asrGauge = asrGauge
	a.ttsGauge = ttsGauge
	_, err = a.meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		snap := a.Current()
		obs.ObserveInt64(asrGauge, int64(len(snap.Asr)))
		obs.ObserveInt64(ttsGauge, int64(len(snap.Tts)))
		return nil
	}, asrGauge, ttsGauge)
	return err
}
