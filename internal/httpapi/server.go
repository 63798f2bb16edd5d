// Package httpapi implements the HTTP/SSE surface (C7): health and
// metrics probes, Wyoming/LLM settings mutation, voice/language
// enumeration, the session log query, and an OpenAI-compatible chat
// completions endpoint backed by the LLM worker adapters.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loqalabs/loqa-voxd/internal/eventstore"
	"github.com/loqalabs/loqa-voxd/internal/llm"
	"github.com/loqalabs/loqa-voxd/internal/tts"
)

// Deps wires the HTTP surface to the shared backends and stores it reads
// from or mutates.
type Deps struct {
	Logger *slog.Logger

	Settings    *SettingsStore
	LLMSettings *LLMSettingsStore

	Voices    tts.VoiceCatalog
	Languages func() []string

	LLM            llm.Generator
	ModelContainer *llm.ModelContainer

	EventStore *eventstore.Store

	MetricsHandler http.Handler
	StartedAt      time.Time

	// Ready reports process readiness for /readyz. Nil means always ready.
	Ready func() bool
}

// NewRouter builds the chi router for the HTTP surface. A nil logger
// defaults to slog.Default().
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(slogRequestLogger(deps.Logger))

	r.Get("/health", h.health)
	r.Get("/healthz", h.health)
	r.Get("/readyz", h.ready)
	if deps.MetricsHandler != nil {
		r.Get("/metrics", deps.MetricsHandler.ServeHTTP)
	}

	r.Route("/api/wyoming", func(r chi.Router) {
		r.Get("/settings", h.getWyomingSettings)
		r.Post("/settings", h.postWyomingSettings)
		r.Get("/tts/voices", h.ttsVoices)
		r.Get("/stt/languages", h.sttLanguages)
	})

	r.Get("/api/logs", h.logs)

	r.Route("/api/llm", func(r chi.Router) {
		r.Get("/settings", h.getLLMSettings)
		r.Post("/settings", h.postLLMSettings)
	})

	r.Get("/v1/models", h.models)
	r.Post("/v1/chat/completions", h.chatCompletions)

	return r
}

type handler struct {
	deps Deps
}

// slogRequestLogger matches the teacher's structured-logging convention
// (slog with component/field attributes) rather than chi's default
// stdlib-log middleware.
func slogRequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			logger.Debug("http request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
