package auth

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastArgon2 = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}

func newAuthServiceForTests(t *testing.T, repo Repo) *Service {
	t.Helper()
	if repo == nil {
		repo = NewMemoryRepo()
	}
	return NewService(repo, Options{Argon2: fastArgon2, SessionTTL: time.Hour}, log.New(io.Discard, "", 0))
}

func validSignup() SignupInput {
	return SignupInput{
		Username:    "ana",
		Email:       " Ana@Example.com ",
		Password:    "correct horse",
		TZContinent: "Europe",
		TZCity:      "Paris",
	}
}

var now = time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)

func TestService_SignupNormalizesAndHashes(t *testing.T) {
	svc := newAuthServiceForTests(t, nil)

	u, err := svc.Signup(context.Background(), validSignup(), now)
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, "Europe/Paris", u.Timezone())
	assert.Equal(t, "Europe/Paris", u.Location().String())
	assert.NotContains(t, u.PasswordHash, "correct horse")
	assert.Contains(t, u.PasswordHash, "$argon2id$v=19$m=1024,t=1,p=1$")
}

func TestService_SignupValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignupInput)
		want   error
	}{
		{"short username", func(in *SignupInput) { in.Username = "al" }, ErrInvalidUsername},
		{"username with at sign", func(in *SignupInput) { in.Username = "ana@home" }, ErrInvalidUsername},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"short password", func(in *SignupInput) { in.Password = "123456789" }, ErrPasswordTooShort},
		{"unknown continent", func(in *SignupInput) { in.TZContinent = "Atlantis" }, ErrInvalidTimezone},
		{"unknown city", func(in *SignupInput) { in.TZCity = "Gotham" }, ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAuthServiceForTests(t, nil)
			in := validSignup()
			tt.mutate(&in)
			_, err := svc.Signup(context.Background(), in, now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_SignupCityWithSpaces(t *testing.T) {
	svc := newAuthServiceForTests(t, nil)
	in := validSignup()
	in.TZContinent, in.TZCity = "America", "New York"

	u, err := svc.Signup(context.Background(), in, now)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", u.Timezone())
}

func TestService_SignupRejectsDuplicates(t *testing.T) {
	svc := newAuthServiceForTests(t, nil)
	_, err := svc.Signup(context.Background(), validSignup(), now)
	require.NoError(t, err)

	again := validSignup()
	again.Username = "ana2"
	_, err = svc.Signup(context.Background(), again, now)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_Signin(t *testing.T) {
	svc := newAuthServiceForTests(t, nil)
	created, err := svc.Signup(context.Background(), validSignup(), now)
	require.NoError(t, err)

	u, err := svc.Signin(context.Background(), "ana", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	u, err = svc.Signin(context.Background(), "ANA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.Signin(context.Background(), "ana", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Signin(context.Background(), "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_SessionLifecycle(t *testing.T) {
	svc := newAuthServiceForTests(t, nil)
	ctx := context.Background()
	u, err := svc.Signup(ctx, validSignup(), now)
	require.NoError(t, err)

	token, sess, err := svc.CreateSession(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
	assert.NotEqual(t, token, sess.TokenHash)

	got, _, err := svc.Authenticate(ctx, token, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, _, err = svc.Authenticate(ctx, "forged", now)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, svc.Revoke(ctx, token))
	_, _, err = svc.Authenticate(ctx, token, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestService_ExpiredSessionIsRemoved(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newAuthServiceForTests(t, repo)
	ctx := context.Background()
	u, err := svc.Signup(ctx, validSignup(), now)
	require.NoError(t, err)

	token, sess, err := svc.CreateSession(ctx, u.ID, now)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: svc.cookieName, Value: token})
	if _, _, ok := svc.AuthenticateRequest(req, sess.ExpiresAt); ok {
		t.Fatalf("expected expired session to be rejected")
	}
	_, err = repo.SessionByTokenHash(ctx, hashToken(token))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_PurgeExpiredSessions(t *testing.T) {
	svc := newAuthServiceForTests(t, nil)
	ctx := context.Background()
	u, err := svc.Signup(ctx, validSignup(), now)
	require.NoError(t, err)

	_, _, err = svc.CreateSession(ctx, u.ID, now)
	require.NoError(t, err)
	_, _, err = svc.CreateSession(ctx, u.ID, now.Add(2*time.Hour))
	require.NoError(t, err)

	n, err := svc.PurgeExpiredSessions(ctx, now.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_BearerToken(t *testing.T) {
	svc := newAuthServiceForTests(t, nil)
	ctx := context.Background()
	u, err := svc.Signup(ctx, validSignup(), now)
	require.NoError(t, err)
	token, _, err := svc.CreateSession(ctx, u.ID, time.Now())
	require.NoError(t, err)

	var seen User
	h := svc.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen.ID != u.ID {
		t.Fatalf("expected authenticated request, got %d (%+v)", rr.Code, seen)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestService_SetSessionCookie_SecureFromEnv(t *testing.T) {
	t.Setenv("TSADAASH_COOKIE_SECURE", "true")
	svc := newAuthServiceForTests(t, nil)

	w := httptest.NewRecorder()
	svc.SetSessionCookie(w, httptest.NewRequest(http.MethodGet, "http://localhost/", nil), "token-123", now)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie set, got %d", len(cookies))
	}
	if !cookies[0].Secure || !cookies[0].HttpOnly {
		t.Fatalf("expected secure http-only cookie, got %+v", cookies[0])
	}
}
