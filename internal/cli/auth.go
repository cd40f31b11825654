package cli

import (
	"context"
	"errors"
	"time"

	"tsadaash/internal/auth"
)

const maxSigninAttempts = 3

// Signup collects a SignupInput and retries the account creation, asking
// again only for the fields the service rejected.
func Signup(ctx context.Context, p *Prompter, svc *auth.Service, now time.Time) (auth.User, error) {
	var in auth.SignupInput
	ask := map[string]bool{"username": true, "email": true, "password": true, "timezone": true}

	for {
		if ask["username"] {
			v, err := p.AskRequired("Username")
			if err != nil {
				return auth.User{}, err
			}
			in.Username = v
		}
		if ask["email"] {
			v, err := p.AskRequired("Email")
			if err != nil {
				return auth.User{}, err
			}
			in.Email = v
		}
		if ask["password"] {
			v, err := p.AskRequired("Password")
			if err != nil {
				return auth.User{}, err
			}
			in.Password = v
		}
		if ask["timezone"] {
			c, err := p.Choose("Timezone continent", auth.Continents, "Europe")
			if err != nil {
				return auth.User{}, err
			}
			city, err := p.AskRequired("Timezone city (e.g. Paris, New York)")
			if err != nil {
				return auth.User{}, err
			}
			in.TZContinent, in.TZCity = c, city
		}

		u, err := svc.Signup(ctx, in, now)
		if err == nil {
			p.Printf("Welcome, %s. Your timezone is %s.\n", u.Username, u.Timezone())
			return u, nil
		}

		ask = map[string]bool{}
		switch {
		case errors.Is(err, auth.ErrInvalidUsername):
			ask["username"] = true
		case errors.Is(err, auth.ErrInvalidEmail):
			ask["email"] = true
		case errors.Is(err, auth.ErrPasswordTooShort):
			ask["password"] = true
		case errors.Is(err, auth.ErrInvalidTimezone):
			ask["timezone"] = true
		case errors.Is(err, auth.ErrUserExists):
			ask["username"], ask["email"] = true, true
		default:
			return auth.User{}, err
		}
		p.Printf("  %v\n", err)
	}
}

// Signin asks for credentials up to three times and opens a session.
func Signin(ctx context.Context, p *Prompter, svc *auth.Service, now time.Time) (auth.User, string, error) {
	for attempt := 1; ; attempt++ {
		login, err := p.AskRequired("Username or email")
		if err != nil {
			return auth.User{}, "", err
		}
		password, err := p.AskRequired("Password")
		if err != nil {
			return auth.User{}, "", err
		}

		u, err := svc.Signin(ctx, login, password)
		if errors.Is(err, auth.ErrInvalidCredentials) && attempt < maxSigninAttempts {
			p.Printf("  %v\n", err)
			continue
		}
		if err != nil {
			return auth.User{}, "", err
		}

		token, _, err := svc.CreateSession(ctx, u.ID, now)
		if err != nil {
			return auth.User{}, "", err
		}
		p.Printf("Signed in as %s.\n", u.Username)
		return u, token, nil
	}
}
