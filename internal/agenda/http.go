package agenda

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rickb777/date/period"

	"tsadaash/internal/applog"
	"tsadaash/internal/auth"
	"tsadaash/internal/periodicity"
)

const previewCount = 5

type Handler struct {
	service     *Service
	defaultSpan period.Period
	now         func() time.Time
}

func NewHandler(service *Service, defaultSpan period.Period) *Handler {
	if defaultSpan.IsZero() {
		defaultSpan = period.NewYMD(0, 0, 7)
	}
	return &Handler{service: service, defaultSpan: defaultSpan, now: time.Now}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// Register mounts the agenda routes. The validation endpoint needs no
// account; the rest go behind requireAuth.
func (h *Handler) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("/api/agenda", requireAuth(http.HandlerFunc(h.Agenda)))
	mux.Handle("/api/agenda/next", requireAuth(http.HandlerFunc(h.Next)))
	mux.HandleFunc("/api/periodicity/validate", h.Validate)
}

// parseInstant accepts RFC 3339 or a bare date, read in loc.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}

// WindowFromQuery reads from/to/span. from defaults to the start of today
// in loc; to, when absent, is from plus span (or the default span).
func (h *Handler) WindowFromQuery(q map[string][]string, loc *time.Location) (periodicity.Window, error) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	from := StartOfDay(h.now(), loc)
	if s := get("from"); s != "" {
		t, err := parseInstant(s, loc)
		if err != nil {
			return periodicity.Window{}, errors.New("from must be RFC 3339 or YYYY-MM-DD")
		}
		from = t
	}
	if s := get("to"); s != "" {
		to, err := parseInstant(s, loc)
		if err != nil {
			return periodicity.Window{}, errors.New("to must be RFC 3339 or YYYY-MM-DD")
		}
		return periodicity.Window{From: from, To: to}, nil
	}

	span := h.defaultSpan
	if s := get("span"); s != "" {
		p, err := ParseSpan(s)
		if err != nil {
			return periodicity.Window{}, err
		}
		span = p
	}
	return SpanWindow(from, span)
}

type entryJSON struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
	At     string `json:"at"`
}

func entriesJSON(es []Entry, loc *time.Location) []entryJSON {
	out := make([]entryJSON, 0, len(es))
	for _, e := range es {
		out = append(out, entryJSON{TaskID: e.TaskID, Title: e.Title, At: e.At.In(loc).Format(time.RFC3339)})
	}
	return out
}

// GET /api/agenda?from=&to=  or  ?span=P1W
func (h *Handler) Agenda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	loc := u.Location()

	win, err := h.WindowFromQuery(r.URL.Query(), loc)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := h.service.Due(r.Context(), u.ID, win)
	if isWindowError(err) {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		applog.Error(h.service.logger, "agenda_failed", map[string]any{"error": err, "user_id": u.ID})
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":     win.From.In(loc).Format(time.RFC3339),
		"to":       win.To.In(loc).Format(time.RFC3339),
		"timezone": u.Timezone(),
		"entries":  entriesJSON(entries, loc),
	})
}

// GET /api/agenda/next
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.service.NextDue(r.Context(), u.ID, h.now())
	if err != nil {
		applog.Error(h.service.logger, "agenda_next_failed", map[string]any{"error": err, "user_id": u.ID})
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entriesJSON(entries, u.Location())})
}

// POST /api/periodicity/validate
//
// Answers 200 with the normalized rule and a preview for a valid document,
// 422 with the offending field otherwise.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var p periodicity.Periodicity
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		if periodicity.IsValidationError(err) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"valid": false,
				"error": err.Error(),
				"field": periodicity.ValidationField(err),
			})
			return
		}
		writeErr(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	preview, err := h.service.Preview(p, h.now(), previewCount)
	if err != nil {
		applog.Error(h.service.logger, "periodicity_preview_failed", map[string]any{"error": err})
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := map[string]any{
		"valid":       true,
		"periodicity": p,
		"preview":     preview,
	}
	if rule, ok := periodicity.RRule(p); ok {
		out["rrule"] = rule
	}
	writeJSON(w, http.StatusOK, out)
}
