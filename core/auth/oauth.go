package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/core/claims"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/random"
	"github.com/irsalhamdi/course-marketplace/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"
)

const stateLength = 32

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type Provider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// MakeProviders discovers every configured OIDC provider. Providers without
// a client id are skipped.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))

	for _, c := range cfgs {
		if c.Client == "" {
			continue
		}

		p, err := oidc.NewProvider(ctx, c.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider %s at %s: %w", c.Name, c.URL, err)
		}

		provs[c.Name] = Provider{
			oauth: &oauth2.Config{
				ClientID:     c.Client,
				ClientSecret: c.Secret,
				RedirectURL:  c.RedirectURL,
				Endpoint:     p.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
			verifier: p.Verifier(&oidc.Config{ClientID: c.Client}),
		}
	}

	return provs, nil
}

func HandleOauthLogin(sm *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")

		p, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("oauth provider %q not configured", name))
		}

		state, err := random.StringSecure(stateLength)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}
		sm.Put(ctx, keyState, state)

		http.Redirect(w, r, p.oauth.AuthCodeURL(state), http.StatusFound)
		return nil
	}
}

type idClaims struct {
	Email    string `json:"email"`
	Verified bool   `json:"email_verified"`
	Name     string `json:"name"`
}

func HandleOauthCallback(db *sqlx.DB, sm *scs.SessionManager, provs map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")

		p, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("oauth provider %q not configured", name))
		}

		q := r.URL.Query()

		state := sm.PopString(ctx, keyState)
		if state == "" || q.Get("state") != state {
			return weberr.NotAuthorized(errors.New("oauth state mismatch"))
		}

		tok, err := p.oauth.Exchange(ctx, q.Get("code"))
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("exchanging oauth code: %w", err))
		}

		raw, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.NotAuthorized(errors.New("oauth token has no id_token"))
		}

		idTok, err := p.verifier.Verify(ctx, raw)
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("verifying id token: %w", err))
		}

		var c idClaims
		if err := idTok.Claims(&c); err != nil {
			return weberr.NotAuthorized(fmt.Errorf("decoding id token claims: %w", err))
		}
		if c.Email == "" || !c.Verified {
			return weberr.Forbidden(fmt.Errorf("email %q of %s account not verified", c.Email, name))
		}

		u, err := fetchOrRegister(ctx, db, c)
		if err != nil {
			return err
		}

		if err := login(ctx, sm, u); err != nil {
			return err
		}

		http.Redirect(w, r, redirectURL, http.StatusFound)
		return nil
	}
}

// fetchOrRegister returns the user owning the verified email, creating a
// passwordless account on first login.
func fetchOrRegister(ctx context.Context, db *sqlx.DB, c idClaims) (User, error) {
	u, err := FetchByEmail(ctx, db, c.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, database.ErrDBNotFound) {
		return User{}, fmt.Errorf("fetching user %s: %w", c.Email, err)
	}

	u = newUser(validate.GenerateID(), c.Email, nil, claims.RoleUser, time.Now().UTC())

	err = register(ctx, db, u, c.Name)
	if errors.Is(err, database.ErrDBDuplicatedEntry) {
		// Lost a race with a concurrent first login.
		return FetchByEmail(ctx, db, c.Email)
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
