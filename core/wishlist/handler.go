package wishlist

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
	"github.com/sirupsen/logrus"
)

// Storer keeps wishlist entries per user.
type Storer interface {
	Add(ctx context.Context, it Item) error
	Remove(ctx context.Context, userID string, courseID string) error
	List(ctx context.Context, userID string) ([]Item, error)
}

// listIDs returns the caller's wishlisted course ids. Anonymous callers and
// storage failures get an empty list.
func listIDs(ctx context.Context, log logrus.FieldLogger, st Storer) []string {
	clm, err := claims.Get(ctx)
	if err != nil || clm.UserID == "" {
		return []string{}
	}

	items, err := st.List(ctx, clm.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", clm.UserID).Warn("listing wishlist")
		return []string{}
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.CourseID)
	}
	return ids
}

func HandleList(log logrus.FieldLogger, st Storer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, listIDs(ctx, log, st), http.StatusOK)
	}
}

// HandleListCourses joins the wishlist with the catalog. Courses no longer in
// the catalog are skipped.
func HandleListCourses(log logrus.FieldLogger, st Storer, catalog *course.Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ids := listIDs(ctx, log, st)

		courses := make([]course.Course, 0, len(ids))
		for _, id := range ids {
			if c, ok := catalog.FindByID(id); ok {
				courses = append(courses, c)
			}
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleAdd(st Storer, catalog *course.Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.InvalidInput(err)
		}

		if _, ok := catalog.FindByID(in.CourseID); !ok {
			return weberr.NotFound(fmt.Errorf("course[%s] not found", in.CourseID))
		}

		it := Item{
			UserID:    clm.UserID,
			CourseID:  in.CourseID,
			CreatedAt: time.Now().UTC(),
		}

		if err := st.Add(ctx, it); err != nil {
			return fmt.Errorf("adding course[%s] to the wishlist of user[%s]: %w", it.CourseID, it.UserID, err)
		}

		return web.Respond(ctx, w, it, http.StatusOK)
	}
}

func HandleRemove(st Storer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")

		err = st.Remove(ctx, clm.UserID, courseID)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(fmt.Errorf("course[%s] not in the wishlist of user[%s]", courseID, clm.UserID))
		}
		if err != nil {
			return fmt.Errorf("removing course[%s] from the wishlist of user[%s]: %w", courseID, clm.UserID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
