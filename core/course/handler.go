package course

import (
	"context"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/validate"
)

func HandleShow(catalog *Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		c, ok := catalog.FindByID(id)
		if !ok {
			return weberr.NotFound(fmt.Errorf("course[%s] not found", id))
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleList(catalog *Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		q := r.URL.Query()
		f := Filter{
			Query: q.Get("q"),
			Level: Level(q.Get("level")),
			Price: PriceBand(q.Get("price")),
		}

		if err := validate.Check(f); err != nil {
			return weberr.InvalidInput(err)
		}

		return web.Respond(ctx, w, catalog.Filter(f), http.StatusOK)
	}
}
