package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/core/claims"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		p, err := Fetch(ctx, db, clm.UserID)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(fmt.Errorf("profile of user[%s] not found", clm.UserID))
		}
		if err != nil {
			return fmt.Errorf("fetching profile of user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleUpdateCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up ProfileUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.InvalidInput(err)
		}

		p, err := Fetch(ctx, db, clm.UserID)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(fmt.Errorf("profile of user[%s] not found", clm.UserID))
		}
		if err != nil {
			return fmt.Errorf("fetching profile of user[%s]: %w", clm.UserID, err)
		}

		p = p.Apply(up, time.Now().UTC())

		if err := Update(ctx, db, p); err != nil {
			return fmt.Errorf("updating profile of user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}
