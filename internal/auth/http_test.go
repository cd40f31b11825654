package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func jsonReq(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_SignupSigninSessionLogout(t *testing.T) {
	svc := newAuthServiceForTests(t, nil)
	mux := http.NewServeMux()
	NewHandler(svc).Register(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(t, http.MethodPost, "/api/auth/signup", validSignup()))
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(t, http.MethodPost, "/api/auth/signup", validSignup()))
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(t, http.MethodPost, "/api/auth/signin", map[string]string{"login": "ana", "password": "nope-nope-nope"}))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad signin: expected 401, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(t, http.MethodPost, "/api/auth/signin", map[string]string{"login": "ana", "password": "correct horse"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "" {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("session: expected 200, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("session after logout: expected 401, got %d", rr.Code)
	}
}

func TestHandler_SignupBadInput(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(newAuthServiceForTests(t, nil)).Register(mux)

	in := validSignup()
	in.Password = "short"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(t, http.MethodPost, "/api/auth/signup", in))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/signup", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
