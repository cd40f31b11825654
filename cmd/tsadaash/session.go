package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tsadaash/internal/auth"
	"tsadaash/internal/cli"
)

var errNotSignedIn = errors.New("not signed in, run `tsadaash signin`")

// sessionPath is where the CLI keeps its session token between runs.
func sessionPath(dataDir string) string {
	if p := strings.TrimSpace(os.Getenv("TSADAASH_SESSION_FILE")); p != "" {
		return p
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tsadaash", "session")
	}
	return filepath.Join(dataDir, ".session")
}

func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func loadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", errNotSignedIn
	}
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errNotSignedIn
	}
	return token, nil
}

func clearToken(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// currentUser resolves the saved session. A stale token file is removed.
func currentUser(ctx context.Context, e *env) (auth.User, error) {
	path := sessionPath(e.cfg.DataDir)
	token, err := loadToken(path)
	if err != nil {
		return auth.User{}, err
	}
	u, _, err := e.app.Auth.Authenticate(ctx, token, time.Now())
	if errors.Is(err, auth.ErrUnauthenticated) {
		_ = clearToken(path)
		return auth.User{}, errNotSignedIn
	}
	return u, err
}

func cmdSignup(ctx context.Context, args []string) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	p := cli.NewPrompter(os.Stdin, os.Stdout)
	u, err := cli.Signup(ctx, p, e.app.Auth, time.Now())
	if err != nil {
		return err
	}
	token, _, err := e.app.Auth.CreateSession(ctx, u.ID, time.Now())
	if err != nil {
		return err
	}
	if err := saveToken(sessionPath(e.cfg.DataDir), token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Printf("Welcome, %s. You are signed in.\n", u.Username)
	return nil
}

func cmdSignin(ctx context.Context, args []string) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	p := cli.NewPrompter(os.Stdin, os.Stdout)
	_, token, err := cli.Signin(ctx, p, e.app.Auth, time.Now())
	if err != nil {
		return err
	}
	if err := saveToken(sessionPath(e.cfg.DataDir), token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func cmdSignout(ctx context.Context, args []string) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	path := sessionPath(e.cfg.DataDir)
	token, err := loadToken(path)
	if errors.Is(err, errNotSignedIn) {
		fmt.Println("Not signed in.")
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.app.Auth.Revoke(ctx, token); err != nil {
		return err
	}
	if err := clearToken(path); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}
