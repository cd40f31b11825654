package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tsadaash/internal/applog"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
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

func userJSON(u User) map[string]any {
	return map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"timezone": u.Timezone(),
	}
}

// Register mounts the auth endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/signup", h.Signup)
	mux.HandleFunc("/api/auth/signin", h.Signin)
	mux.HandleFunc("/api/auth/session", h.Session)
	mux.HandleFunc("/api/auth/logout", h.Logout)
}

// POST /api/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in SignupInput
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	u, err := h.service.Signup(r.Context(), in, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidEmail),
			errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrInvalidTimezone):
			writeErr(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUserExists):
			writeErr(w, http.StatusConflict, err.Error())
		default:
			applog.Error(h.service.logger, "signup_failed", map[string]any{"error": err})
			writeErr(w, http.StatusInternalServerError, "could not sign up")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "user": userJSON(u)})
}

// POST /api/auth/signin
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	u, err := h.service.Signin(r.Context(), in.Login, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeErr(w, http.StatusUnauthorized, err.Error())
			return
		}
		applog.Error(h.service.logger, "signin_error", map[string]any{"error": err})
		writeErr(w, http.StatusInternalServerError, "could not sign in")
		return
	}

	token, sess, err := h.service.CreateSession(r.Context(), u.ID, time.Now())
	if err != nil {
		applog.Error(h.service.logger, "session_create_failed", map[string]any{"error": err, "user_id": u.ID})
		writeErr(w, http.StatusInternalServerError, "could not sign in")
		return
	}
	h.service.SetSessionCookie(w, r, token, sess.ExpiresAt)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"user":      userJSON(u),
		"token":     token,
		"expiresAt": sess.ExpiresAt.Format(time.RFC3339),
	})
}

// GET /api/auth/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, sess, ok := h.service.AuthenticateRequest(r, time.Now())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": userJSON(u),
		"session": map[string]any{
			"createdAt": sess.CreatedAt.Format(time.RFC3339),
			"expiresAt": sess.ExpiresAt.Format(time.RFC3339),
		},
	})
}

// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.service.RevokeSessionForRequest(r)
	h.service.ClearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
