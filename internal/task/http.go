package task

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"tsadaash/internal/applog"
	"tsadaash/internal/auth"
	"tsadaash/internal/periodicity"
)

// Handler serves /api/tasks. Every route expects auth.RequireAPI in front
// of it and only ever shows the caller's own tasks.
type Handler struct {
	repo   Repo
	logger *log.Logger
	now    func() time.Time
}

func NewHandler(repo Repo, logger *log.Logger) *Handler {
	return &Handler{repo: repo, logger: applog.OrDefault(logger), now: time.Now}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

// writeDecodeErr tells periodicity validation failures apart from
// malformed JSON so clients can point at the offending field.
func writeDecodeErr(w http.ResponseWriter, err error) {
	if periodicity.IsValidationError(err) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": err.Error(),
			"field": periodicity.ValidationField(err),
		})
		return
	}
	writeErr(w, http.StatusBadRequest, "bad json: "+err.Error())
}

func (h *Handler) internal(w http.ResponseWriter, event string, err error) {
	applog.Error(h.logger, event, map[string]any{"error": err})
	writeErr(w, http.StatusInternalServerError, "internal error")
}

// Register mounts the task routes behind requireAuth.
func (h *Handler) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("/api/tasks", requireAuth(http.HandlerFunc(h.TasksRoot)))
	mux.Handle("/api/tasks/", requireAuth(http.HandlerFunc(h.TasksSub)))
}

// /api/tasks  (collection)
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		ts, err := h.repo.ListByUser(r.Context(), u.ID)
		if err != nil {
			h.internal(w, "task_list_failed", err)
			return
		}
		writeJSON(w, http.StatusOK, ts)

	case http.MethodPost:
		var in Upsert
		if err := decodeJSON(r, &in); err != nil {
			writeDecodeErr(w, err)
			return
		}
		t, err := h.repo.Create(r.Context(), Task{
			UserID:      u.ID,
			Title:       in.Title,
			Description: strings.TrimSpace(in.Description),
			Periodicity: in.Periodicity,
		})
		if errors.Is(err, ErrInvalidTitle) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			h.internal(w, "task_create_failed", err)
			return
		}
		applog.Info(h.logger, "task_created", map[string]any{"task_id": t.ID, "user_id": u.ID, "kind": kindOf(t)})
		writeJSON(w, http.StatusCreated, t)

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/tasks/{id} and /api/tasks/{id}/calendar.ics
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	if tail == "" {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	parts := strings.Split(tail, "/")
	id := parts[0]

	cur, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) || (err == nil && cur.UserID != u.ID) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.internal(w, "task_get_failed", err)
		return
	}

	if len(parts) == 2 && parts[1] == "calendar.ics" {
		h.calendar(w, r, cur)
		return
	}
	if len(parts) != 1 {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, cur)

	case http.MethodPatch:
		var p Patch
		if err := decodeJSON(r, &p); err != nil {
			writeDecodeErr(w, err)
			return
		}
		t, err := h.repo.Update(r.Context(), id, p)
		switch {
		case errors.Is(err, ErrInvalidTitle):
			writeErr(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			writeErr(w, http.StatusNotFound, "not found")
		case err != nil:
			h.internal(w, "task_update_failed", err)
		default:
			writeJSON(w, http.StatusOK, t)
		}

	case http.MethodDelete:
		if err := h.repo.Delete(r.Context(), id); err != nil && !errors.Is(err, ErrNotFound) {
			h.internal(w, "task_delete_failed", err)
			return
		}
		applog.Info(h.logger, "task_deleted", map[string]any{"task_id": id, "user_id": u.ID})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) calendar(w http.ResponseWriter, r *http.Request, t Task) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := BuildTaskCalendarICS(t, h.now())
	if errors.Is(err, ErrNoSchedule) || errors.Is(err, ErrNoOccurrences) {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.internal(w, "task_ics_failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="task-`+t.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func kindOf(t Task) string {
	if !t.HasSchedule() {
		return ""
	}
	return string(t.Periodicity.Kind())
}
