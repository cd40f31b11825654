package serverapp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"

	"tsadaash/internal/agenda"
	"tsadaash/internal/applog"
	"tsadaash/internal/auth"
	"tsadaash/internal/config"
	"tsadaash/internal/httpmw"
	"tsadaash/internal/periodicity"
	"tsadaash/internal/store"
	"tsadaash/internal/task"
	staticfiles "tsadaash/static"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Config *config.Config
	DB     *store.DB
	Logger *log.Logger
}

// App holds the wired services behind the HTTP surface.
type App struct {
	cfg    *config.Config
	db     *store.DB
	logger *log.Logger

	Auth    *auth.Service
	Tasks   task.Repo
	Agenda  *agenda.Service
	handler http.Handler

	agendaHandler *agenda.Handler
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.DB == nil {
		return nil, errors.New("database is required")
	}
	cfg := opts.Config
	logger := applog.OrDefault(opts.Logger)

	span, err := agenda.ParseSpan(cfg.Agenda.DefaultSpan)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, db: opts.DB, logger: logger}
	a.Auth = auth.NewService(auth.NewSQLRepo(opts.DB), auth.Options{
		Argon2: auth.Argon2Params{
			Memory:      cfg.Auth.Argon2.MemoryKiB,
			Iterations:  cfg.Auth.Argon2.Iterations,
			Parallelism: cfg.Auth.Argon2.Parallelism,
		},
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		SessionTTL:        cfg.SessionTTL(),
		CookieName:        cfg.Auth.CookieName,
	}, logger)
	a.Tasks = task.NewSQLRepo(opts.DB, logger)
	a.Agenda = agenda.NewService(a.Tasks, periodicity.NewResolver(cfg.MaxWindow()), logger)
	a.agendaHandler = agenda.NewHandler(a.Agenda, span)

	logSecurityHints(logger)
	a.handler = a.routes()
	return a, nil
}

// NewHandler wires an App and returns its root handler.
func NewHandler(opts Options) (http.Handler, error) {
	a, err := New(opts)
	if err != nil {
		return nil, err
	}
	return a.Handler(), nil
}

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticfiles.EmbeddedFS()))))
	mux.HandleFunc("/healthz", a.healthz)
	mux.HandleFunc("/readyz", a.readyz)

	auth.NewHandler(a.Auth).Register(mux)
	task.NewHandler(a.Tasks, a.logger).Register(mux, a.Auth.RequireAPI)
	a.agendaHandler.Register(mux, a.Auth.RequireAPI)

	mux.HandleFunc("/signin", a.signin)
	mux.Handle("/", a.Auth.RequirePage(http.HandlerFunc(a.agendaPage)))

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(a.logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(a.logger),
		httpmw.WithSecurityHeaders,
		httpmw.WithBodyLimit(maxBodyBytes),
	)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func render(w http.ResponseWriter, r *http.Request, code int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = c.Render(r.Context(), w)
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "tsadaash",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) readyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.db.PingContext(ctx); err != nil {
		applog.Warn(a.logger, "readyz_db_unavailable", map[string]any{"error": err})
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok":    false,
			"error": "database unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "tsadaash",
		"driver":  a.db.Driver,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// agendaPage renders the signed-in user's agenda. The window comes from
// the same from/to/span query parameters as /api/agenda.
func (a *App) agendaPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	win, err := a.agendaHandler.WindowFromQuery(r.URL.Query(), u.Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := a.Agenda.Due(r.Context(), u.ID, win)
	if err != nil {
		var rerr *periodicity.ResolverError
		if errors.As(err, &rerr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		applog.Error(a.logger, "agenda_page_failed", map[string]any{"error": err, "user_id": u.ID})
		http.Error(w, "could not load agenda", http.StatusInternalServerError)
		return
	}
	render(w, r, http.StatusOK, agendaPage(u, win.From, win.To, entries))
}

// signin serves the form on GET. A POST signs in, sets the session cookie
// and returns to the agenda.
func (a *App) signin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		render(w, r, http.StatusOK, signinPage(""))
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			render(w, r, http.StatusBadRequest, signinPage("Could not read the form."))
			return
		}
		u, err := a.Auth.Signin(r.Context(), r.PostFormValue("login"), r.PostFormValue("password"))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				render(w, r, http.StatusUnauthorized, signinPage(err.Error()))
				return
			}
			applog.Error(a.logger, "signin_error", map[string]any{"error": err})
			render(w, r, http.StatusInternalServerError, signinPage("Sign in failed, try again."))
			return
		}
		token, sess, err := a.Auth.CreateSession(r.Context(), u.ID, time.Now())
		if err != nil {
			applog.Error(a.logger, "session_create_failed", map[string]any{"error": err, "user_id": u.ID})
			render(w, r, http.StatusInternalServerError, signinPage("Sign in failed, try again."))
			return
		}
		a.Auth.SetSessionCookie(w, r, token, sess.ExpiresAt)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RunSessionJanitor purges expired sessions every interval until ctx ends.
func (a *App) RunSessionJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			a.purgeSessions(ctx, now)
		}
	}
}

func (a *App) purgeSessions(ctx context.Context, now time.Time) {
	n, err := a.Auth.PurgeExpiredSessions(ctx, now)
	if err != nil {
		applog.Warn(a.logger, "session_purge_failed", map[string]any{"error": err})
		return
	}
	if n > 0 {
		applog.Info(a.logger, "sessions_purged", map[string]any{"count": n})
	}
}

func logSecurityHints(logger *log.Logger) {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("TSADAASH_ENV")))
	if env != "production" && env != "prod" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TSADAASH_COOKIE_SECURE"))) {
	case "1", "true", "yes":
	default:
		applog.Warn(logger, "security_hint", map[string]any{
			"env":  env,
			"hint": "TSADAASH_COOKIE_SECURE is not explicitly true",
		})
	}
}
