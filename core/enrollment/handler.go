package enrollment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/core/claims"
	"github.com/irsalhamdi/course-marketplace/core/course"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/validate"
	"github.com/jmoiron/sqlx"
)

func HandleListOwned(db *sqlx.DB, catalog *course.Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		es, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching enrollments of user[%s]: %w", clm.UserID, err)
		}

		owned := make([]Owned, 0, len(es))
		for _, e := range es {
			c, ok := catalog.FindByID(e.CourseID)
			if !ok {
				continue
			}
			owned = append(owned, Owned{Enrollment: e, Course: c})
		}

		return web.Respond(ctx, w, owned, http.StatusOK)
	}
}

func HandleUpdateProgress(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")

		var up ProgressUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.InvalidInput(err)
		}

		err = UpdateProgress(ctx, db, clm.UserID, courseID, *up.Progress, time.Now().UTC())
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(fmt.Errorf("user[%s] is not enrolled in course[%s]", clm.UserID, courseID))
		}
		if err != nil {
			return fmt.Errorf("updating progress of course[%s] for user[%s]: %w", courseID, clm.UserID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
