package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/rate"
)

// RateLimit rejects requests whose key has exhausted its budget. Requests for
// which key returns "" are keyed by remote address.
func RateLimit(l *rate.Limiter, key func(ctx context.Context, r *http.Request) string) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			k := key(ctx, r)
			if k == "" {
				k = r.RemoteAddr
			}

			if !l.Check(k) {
				return weberr.TooManyRequests(errors.New("rate limit exceeded"), weberr.WithFields(map[string]any{"rate_key": k}))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
