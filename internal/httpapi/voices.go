package httpapi

import (
	"net/http"

	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

func (h *handler) ttsVoices(w http.ResponseWriter, r *http.Request) {
	var voices []wyoming.TtsVoice
	if h.deps.Voices != nil {
		var err error
		voices, err = h.deps.Voices.Voices(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "list voices: "+err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

func (h *handler) sttLanguages(w http.ResponseWriter, r *http.Request) {
	var languages []string
	if h.deps.Languages != nil {
		languages = h.deps.Languages()
	}
	writeJSON(w, http.StatusOK, map[string]any{"languages": languages})
}
