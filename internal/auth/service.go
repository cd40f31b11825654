package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"os"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"tsadaash/internal/applog"
)

var (
	ErrInvalidUsername    = errors.New("username must be 3-32 letters, digits, '.', '_' or '-'")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidTimezone    = errors.New("unknown time zone")
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

type Options struct {
	Argon2            Argon2Params
	MinPasswordLength int
	SessionTTL        time.Duration
	CookieName        string
}

type Service struct {
	repo   Repo
	logger *log.Logger

	argon2         Argon2Params
	dummyHash      string
	minPasswordLen int
	sessionTTL     time.Duration
	cookieName     string
}

func NewService(repo Repo, opts Options, logger *log.Logger) *Service {
	s := &Service{
		repo:           repo,
		logger:         applog.OrDefault(logger),
		argon2:         opts.Argon2.withDefaults(),
		minPasswordLen: opts.MinPasswordLength,
		sessionTTL:     opts.SessionTTL,
		cookieName:     opts.CookieName,
	}
	if s.minPasswordLen <= 0 {
		s.minPasswordLen = 10
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 30 * 24 * time.Hour
	}
	if s.cookieName == "" {
		s.cookieName = "tsadaash_session"
	}
	s.dummyHash = dummyHashFor(s.argon2)
	return s
}

type SignupInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	TZContinent string `json:"tzContinent"`
	TZCity      string `json:"tzCity"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return ErrInvalidEmail
	}
	if strings.ToLower(addr.Address) != email {
		return ErrInvalidEmail
	}
	return nil
}

func validateUsername(name string) error {
	if n := len(name); n < 3 || n > 32 {
		return ErrInvalidUsername
	}
	for _, r := range name {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-') {
			return ErrInvalidUsername
		}
	}
	return nil
}

// ValidateTimezone accepts continent/city pairs the system zone database
// knows, with the continent from Continents.
func ValidateTimezone(continent, city string) error {
	if !slices.Contains(Continents, continent) || city == "" || strings.ContainsAny(city, " ") {
		return fmt.Errorf("%w: %s/%s", ErrInvalidTimezone, continent, city)
	}
	if _, err := time.LoadLocation(continent + "/" + city); err != nil {
		return fmt.Errorf("%w: %s/%s", ErrInvalidTimezone, continent, city)
	}
	return nil
}

func (s *Service) ValidatePassword(password string) error {
	if n := len([]rune(password)); n < s.minPasswordLen {
		return fmt.Errorf("%w: %d characters, need at least %d", ErrPasswordTooShort, n, s.minPasswordLen)
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

func (s *Service) Signup(ctx context.Context, in SignupInput, now time.Time) (User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	continent := strings.TrimSpace(in.TZContinent)
	city := strings.ReplaceAll(strings.TrimSpace(in.TZCity), " ", "_")

	if err := validateUsername(username); err != nil {
		return User{}, err
	}
	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	if err := s.ValidatePassword(in.Password); err != nil {
		return User{}, err
	}
	if err := ValidateTimezone(continent, city); err != nil {
		return User{}, err
	}

	hash, err := HashPassword(in.Password, s.argon2)
	if err != nil {
		return User{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           id.String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		TZContinent:  continent,
		TZCity:       city,
		CreatedAt:    now.UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	applog.Info(s.logger, "user_signed_up", map[string]any{"user_id": u.ID, "username": u.Username})
	return u, nil
}

// Signin checks a username or email plus password. Unknown accounts still
// pay for one Argon2id verification and get the same error as a wrong
// password.
func (s *Service) Signin(ctx context.Context, login, password string) (User, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = normalizeEmail(login)
	}

	u, err := s.repo.UserByLogin(ctx, login)
	if errors.Is(err, ErrUserNotFound) {
		_, _ = VerifyPassword(password, s.dummyHash)
		applog.Warn(s.logger, "signin_failed", map[string]any{"reason": "unknown_user"})
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return User{}, fmt.Errorf("verify password for %s: %w", u.ID, err)
	}
	if !ok {
		applog.Warn(s.logger, "signin_failed", map[string]any{"reason": "bad_password", "user_id": u.ID})
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CreateSession issues a bearer token; only its hash is stored.
func (s *Service) CreateSession(ctx context.Context, userID string, now time.Time) (string, Session, error) {
	token, err := generateToken()
	if err != nil {
		return "", Session{}, err
	}
	sess := Session{
		UserID:    userID,
		TokenHash: hashToken(token),
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(s.sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return "", Session{}, err
	}
	return token, sess, nil
}

func (s *Service) Authenticate(ctx context.Context, token string, now time.Time) (User, Session, error) {
	if token == "" {
		return User{}, Session{}, ErrUnauthenticated
	}
	sess, err := s.repo.SessionByTokenHash(ctx, hashToken(token))
	if errors.Is(err, ErrSessionNotFound) {
		return User{}, Session{}, ErrUnauthenticated
	}
	if err != nil {
		return User{}, Session{}, err
	}
	if !now.Before(sess.ExpiresAt) {
		_ = s.repo.DeleteSession(ctx, sess.TokenHash)
		return User{}, Session{}, ErrUnauthenticated
	}
	u, err := s.repo.UserByID(ctx, sess.UserID)
	if errors.Is(err, ErrUserNotFound) {
		_ = s.repo.DeleteSession(ctx, sess.TokenHash)
		return User{}, Session{}, ErrUnauthenticated
	}
	if err != nil {
		return User{}, Session{}, err
	}
	return u, sess, nil
}

func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, hashToken(token))
}

func (s *Service) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.DeleteExpiredSessions(ctx, now)
	if err == nil && n > 0 {
		applog.Info(s.logger, "sessions_purged", map[string]any{"count": n})
	}
	return n, err
}

// tokenFromRequest reads the session cookie, then an Authorization bearer.
func (s *Service) tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func (s *Service) AuthenticateRequest(r *http.Request, now time.Time) (User, Session, bool) {
	u, sess, err := s.Authenticate(r.Context(), s.tokenFromRequest(r), now)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			applog.Error(s.logger, "authenticate_failed", map[string]any{"error": err})
		}
		return User{}, Session{}, false
	}
	return u, sess, true
}

func (s *Service) RevokeSessionForRequest(r *http.Request) {
	_ = s.Revoke(r.Context(), s.tokenFromRequest(r))
}

func (s *Service) shouldUseSecureCookie(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TSADAASH_COOKIE_SECURE"))) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

func (s *Service) SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.shouldUseSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.shouldUseSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, sess, ok := s.AuthenticateRequest(r, time.Now())
		if !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized"})
			return
		}
		ctx := withSessionContext(withUserContext(r.Context(), u), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePage redirects anonymous visitors to the sign-in form.
func (s *Service) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, sess, ok := s.AuthenticateRequest(r, time.Now())
		if !ok {
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}
		ctx := withSessionContext(withUserContext(r.Context(), u), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
