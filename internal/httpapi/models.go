package httpapi

import "net/http"

type modelEntry struct {
	ID string `json:"id"`
}

// models answers /v1/models with the single configured default LLM model,
// plus any additional models the model container currently holds in its
// LRU cache; models it has evicted are not listed.
func (h *handler) models(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]struct{})
	var entries []modelEntry

	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		entries = append(entries, modelEntry{ID: id})
	}

	if h.deps.LLMSettings != nil {
		add(h.deps.LLMSettings.Get().DefaultModel)
	}
	if h.deps.ModelContainer != nil {
		for _, id := range h.deps.ModelContainer.Keys() {
			add(id)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}
