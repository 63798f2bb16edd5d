// Package runtime wires configuration into the live process: telemetry,
// the internal message bus, event storage, the installed speech backends,
// the capability announcer, the Wyoming TCP listener, the HTTP/SSE
// surface, and the mDNS advertiser. Runtime.Start brings every component
// up in dependency order and tears them down in reverse on shutdown.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-voxd/internal/bus"
	"github.com/loqalabs/loqa-voxd/internal/capability"
	"github.com/loqalabs/loqa-voxd/internal/config"
	"github.com/loqalabs/loqa-voxd/internal/discovery"
	"github.com/loqalabs/loqa-voxd/internal/eventstore"
	"github.com/loqalabs/loqa-voxd/internal/httpapi"
	"github.com/loqalabs/loqa-voxd/internal/llm"
	"github.com/loqalabs/loqa-voxd/internal/natsserver"
	"github.com/loqalabs/loqa-voxd/internal/session"
	"github.com/loqalabs/loqa-voxd/internal/stt"
	"github.com/loqalabs/loqa-voxd/internal/tts"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
	"github.com/loqalabs/loqa-voxd/internal/wyomingserver"
)

// Runtime owns every long-lived component started from one configuration.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger

	httpServer  *http.Server
	tracerClose func(context.Context) error
	natsEmbed   *natsserver.EmbeddedServer
	busClient   *bus.Client
	eventStore  *eventstore.Store

	ready atomic.Bool
	wg    sync.WaitGroup
}

// New builds a Runtime for cfg. Call Start to bring it up.
func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{cfg: cfg, logger: logger}
}

// Start brings up telemetry, the bus, event storage, the configured speech
// backends, the Wyoming listener, the HTTP surface, and mDNS discovery,
// then blocks until ctx is canceled and tears everything down in reverse.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	if err := r.setupBus(ctx); err != nil {
		return fmt.Errorf("failed to setup bus: %w", err)
	}

	store, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	r.eventStore = store

	synth, err := buildSynthesizer(r.cfg.TTS)
	if err != nil {
		return fmt.Errorf("failed to build tts backend: %w", err)
	}
	recognizer, err := buildRecognizer(r.cfg.STT)
	if err != nil {
		return fmt.Errorf("failed to build stt backend: %w", err)
	}
	voices := tts.NewStaticCatalog(defaultVoices(r.cfg.TTS))
	generator, err := buildGenerator(r.cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to build llm backend: %w", err)
	}
	modelContainer, err := llm.NewModelContainer(r.cfg.LLM.ModelCacheSize, llm.LoaderFor(generator))
	if err != nil {
		return fmt.Errorf("failed to build model cache: %w", err)
	}
	generator = llm.NewCachingGenerator(generator, modelContainer)

	describe := func() wyoming.Info {
		return describeInfo(r.cfg, recognizer != nil, synth != nil, voices)
	}

	announcer, err := capability.NewAnnouncer(r.cfg.Node, r.busClient, describe, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start capability announcer: %w", err)
	}
	_ = announcer // retained only for its initial publish; no further calls needed yet

	wyomingDeps := wyomingserver.Deps{
		Synth:      synth,
		Recognizer: recognizer,
		Describe:   describe,
		TTSConfig: session.TTSSessionConfig{
			SentenceTimeoutBase: time.Duration(r.cfg.Wyoming.SynthesizeTimeout) * time.Millisecond,
			InterSentencePause:  time.Duration(r.cfg.Wyoming.InterSentencePause) * time.Millisecond,
			BackendDefaultVoice: wyoming.VoiceSelector{Name: r.cfg.TTS.DefaultVoice, Language: r.cfg.TTS.DefaultLanguage},
		},
		OnConnectionError: func() {},
		OnSessionEvent: func(sessionID, kind string) {
			if r.eventStore == nil {
				return
			}
			evt := eventstore.Event{SessionID: sessionID, Type: kind, Level: "debug", Category: "wyoming"}
			if kind == "opened" {
				if err := r.eventStore.AppendSession(context.Background(), sessionID, "", r.cfg.EventStore.RetentionMode); err != nil {
					r.logger.Debug("failed to append wyoming session", slog.String("error", err.Error()))
				}
			}
			if err := r.eventStore.AppendEvent(context.Background(), evt); err != nil {
				r.logger.Debug("failed to append wyoming session event", slog.String("error", err.Error()))
			}
		},
	}
	wyomingSrv := wyomingserver.NewServer(
		wyomingDeps,
		r.cfg.Wyoming.MaxConnections,
		time.Duration(r.cfg.Wyoming.ShutdownGraceMS)*time.Millisecond,
		r.logger,
	)
	wyomingAddr := fmt.Sprintf("%s:%d", r.cfg.Wyoming.Bind, r.cfg.Wyoming.Port)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := wyomingSrv.Serve(ctx, wyomingAddr); err != nil {
			r.logger.Error("wyoming server exited", slog.String("error", err.Error()))
		}
	}()

	settingsStore := httpapi.NewSettingsStore(httpapi.WyomingSettings{
		DefaultVoice:    r.cfg.TTS.DefaultVoice,
		DefaultLanguage: r.cfg.TTS.DefaultLanguage,
	}, voices, func() []string { return sttLanguages(r.cfg.STT) })
	llmSettingsStore := httpapi.NewLLMSettingsStore(httpapi.LLMSettings{
		DefaultModel: r.cfg.LLM.DefaultModel,
		MaxTokens:    r.cfg.LLM.MaxTokens,
		Temperature:  r.cfg.LLM.Temperature,
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         r.logger,
		Settings:       settingsStore,
		LLMSettings:    llmSettingsStore,
		Voices:         voices,
		Languages:      func() []string { return sttLanguages(r.cfg.STT) },
		LLM:            generator,
		ModelContainer: modelContainer,
		EventStore:     r.eventStore,
		MetricsHandler: metricsHandler,
		StartedAt:      time.Now(),
		Ready:          r.ready.Load,
	})

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if r.cfg.Discovery.Enabled {
		advertiser := discovery.NewAdvertiser(r.cfg.Discovery.ServiceName, r.cfg.Wyoming.Port, r.logger)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := advertiser.Run(ctx); err != nil {
				r.logger.Warn("mdns advertiser exited", slog.String("error", err.Error()))
			}
		}()
	}

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("http_addr", addr), slog.String("wyoming_addr", wyomingAddr))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.eventStore != nil {
		if err := r.eventStore.Close(); err != nil {
			r.logger.Error("event store close error", slog.String("error", err.Error()))
		}
	}
	if r.busClient != nil {
		r.busClient.Close()
	}
	if r.natsEmbed != nil {
		r.natsEmbed.Shutdown()
	}
	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) setupBus(ctx context.Context) error {
	if r.cfg.Bus.Embedded {
		embed, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return err
		}
		r.natsEmbed = embed
	}
	client, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		if r.natsEmbed != nil {
			r.natsEmbed.Shutdown()
		}
		return err
	}
	r.busClient = client
	return nil
}

func buildSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	if !cfg.Enabled {
		return tts.NewMockSynth(), nil
	}
	switch cfg.Mode {
	case "exec":
		return tts.NewExecSynth(cfg.Command)
	case "mock", "":
		return tts.NewMockSynth(), nil
	default:
		return nil, fmt.Errorf("unknown tts mode %q", cfg.Mode)
	}
}

func buildRecognizer(cfg config.STTConfig) (stt.Recognizer, error) {
	if !cfg.Enabled {
		return stt.NewMockRecognizer(), nil
	}
	switch cfg.Mode {
	case "exec":
		return stt.NewExecRecognizer(cfg)
	case "whisper":
		return stt.NewWhisperRecognizer(cfg.ModelPath, cfg.Language, cfg.Threads)
	case "mock", "":
		return stt.NewMockRecognizer(), nil
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}

func buildGenerator(cfg config.LLMConfig) (llm.Generator, error) {
	if !cfg.Enabled {
		return llm.NewMockGenerator(), nil
	}
	switch cfg.Mode {
	case "ollama":
		return llm.NewOllamaGenerator(cfg.Endpoint), nil
	case "exec":
		return llm.NewExecGenerator(cfg.Command)
	case "mock", "":
		return llm.NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown llm mode %q", cfg.Mode)
	}
}

func defaultVoices(cfg config.TTSConfig) []wyoming.TtsVoice {
	if cfg.DefaultVoice == "" {
		return []wyoming.TtsVoice{{Name: "default", Language: "en-US"}}
	}
	return []wyoming.TtsVoice{{Name: cfg.DefaultVoice, Language: cfg.DefaultLanguage}}
}

func sttLanguages(cfg config.STTConfig) []string {
	if cfg.Language == "" {
		return []string{"en-US"}
	}
	return []string{cfg.Language}
}

func describeInfo(cfg config.Config, sttInstalled, ttsInstalled bool, voices *tts.StaticCatalog) wyoming.Info {
	voiceList, _ := voices.Voices(context.Background())
	return wyoming.Info{
		Asr: []wyoming.AsrProgram{{
			Name:        strings.TrimSpace(cfg.STT.Mode) + "-stt",
			Attribution: wyoming.Attribution{Name: cfg.RuntimeName},
			Installed:   sttInstalled,
			Languages:   sttLanguages(cfg.STT),
		}},
		Tts: []wyoming.TtsProgram{{
			Name:        strings.TrimSpace(cfg.TTS.Mode) + "-tts",
			Attribution: wyoming.Attribution{Name: cfg.RuntimeName},
			Installed:   ttsInstalled,
			Voices:      voiceList,
		}},
	}
}
