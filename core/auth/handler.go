package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/core/claims"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = errors.New("invalid email or password")

func HandleSignup(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in Signup
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.InvalidInput(err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		u := newUser(validate.GenerateID(), in.Email, hash, claims.RoleUser, time.Now().UTC())

		err = register(ctx, db, u, in.FullName)
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return weberr.Conflict(err, "email already registered")
		}
		if err != nil {
			return err
		}

		if err := login(ctx, sm, u); err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in Login
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.InvalidInput(err)
		}

		u, err := FetchByEmail(ctx, db, in.Email)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NewError(errBadCredentials, errBadCredentials.Error(), http.StatusUnauthorized)
		}
		if err != nil {
			return fmt.Errorf("fetching user %s: %w", in.Email, err)
		}

		// Accounts created through OIDC have no password.
		if len(u.PasswordHash) == 0 || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)) != nil {
			return weberr.NewError(errBadCredentials, errBadCredentials.Error(), http.StatusUnauthorized)
		}

		if err := login(ctx, sm, u); err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
