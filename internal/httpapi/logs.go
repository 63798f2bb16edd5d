package httpapi

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

var relativeSince = regexp.MustCompile(`^(\d+)([smhd])$`)

// parseSince accepts an ISO-8601 timestamp with fractional seconds, a
// Unix timestamp in decimal seconds, or a relative duration like "15m" /
// "2h" / "1d", and returns the absolute instant it names.
func parseSince(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if m := relativeSince.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid relative since %q", raw)
		}
		var unit time.Duration
		switch m[2] {
		case "s":
			unit = time.Second
		case "m":
			unit = time.Minute
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		}
		return now.Add(-time.Duration(n) * unit), nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		whole := int64(seconds)
		frac := seconds - float64(whole)
		return time.Unix(whole, int64(frac*float64(time.Second))).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized since value %q", raw)
}

type logEntry struct {
	SessionID string    `json:"session_id"`
	TraceID   string    `json:"trace_id,omitempty"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Category  string    `json:"category,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *handler) logs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	since, err := parseSince(q.Get("since"), time.Now().UTC())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxCount := 0
	if raw := q.Get("maxCount"); raw != "" {
		maxCount, err = strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid maxCount")
			return
		}
	}

	if h.deps.EventStore == nil {
		writeJSON(w, http.StatusOK, map[string]any{"logs": []logEntry{}, "count": 0, "since": q.Get("since")})
		return
	}

	events, err := h.deps.EventStore.ListSince(r.Context(), since, maxCount, q.Get("level"), q.Get("category"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "query logs: "+err.Error())
		return
	}

	entries := make([]logEntry, len(events))
	for i, e := range events {
		entries[i] = logEntry{
			SessionID: e.SessionID,
			TraceID:   e.TraceID,
			Type:      e.Type,
			Level:     e.Level,
			Category:  e.Category,
			Payload:   string(e.Payload),
			CreatedAt: e.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": entries, "count": len(entries), "since": q.Get("since")})
}
