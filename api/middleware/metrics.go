package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/metrics"
	"github.com/zenazn/goji/web/mutil"
)

// Metrics records request counts and latency labelled by the route template,
// so ids in the path do not blow up label cardinality.
func Metrics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			route := "unmatched"
			if cr := mux.CurrentRoute(r); cr != nil {
				if tpl, err := cr.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			start := time.Now()
			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			metrics.Requests.WithLabelValues(route, strconv.Itoa(lw.Status())).Inc()
			metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
		return h
	}
	return m
}
