package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/rate"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func serve(t *testing.T, h web.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	if err := h(r.Context(), w, r); err != nil {
		t.Fatalf("unexpected error escaping the chain: %v", err)
	}
	return w
}

func TestErrorsUsesAttachedResponse(t *testing.T) {
	h := web.WrapMiddleware([]web.Middleware{RequestID(), Errors(quietLogger())},
		func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return weberr.NotFound(errors.New("no course"))
		})

	w := serve(t, h, httptest.NewRequest(http.MethodGet, "/courses/x", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, w.Code)
	}

	var body weberr.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "the resource could not be found" {
		t.Fatalf("unexpected error body %q", body.Error)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a request id header on the response")
	}
}

func TestErrorsHidesUnknownErrors(t *testing.T) {
	h := Errors(quietLogger())(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("database password is hunter2")
	})

	w := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if strings.Contains(w.Body.String(), "hunter2") {
		t.Fatal("internal error details leaked to the client")
	}
}

func TestPanicsRecovered(t *testing.T) {
	h := web.WrapMiddleware([]web.Middleware{Errors(quietLogger()), Panics()},
		func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			panic("kaboom")
		})

	w := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	var seen string
	h := RequestID()(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		seen = ContextRequestID(ctx)
		return nil
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, strings.Repeat("a", 200))
	serve(t, h, r)

	if len(seen) != requestIDLengthLimit {
		t.Fatalf("expected request id truncated to %d, got %d", requestIDLengthLimit, len(seen))
	}
}

func TestRateLimit(t *testing.T) {
	l := rate.NewLimiter(1, time.Minute, rate.Every(time.Hour))
	defer l.Stop()

	key := func(ctx context.Context, r *http.Request) string { return "user-1" }
	h := web.WrapMiddleware([]web.Middleware{Errors(quietLogger()), RateLimit(l, key)},
		func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		})

	codes := []int{http.StatusNoContent, http.StatusTooManyRequests}
	for i, exp := range codes {
		w := serve(t, h, httptest.NewRequest(http.MethodPost, "/courses/x/checkout", nil))
		if w.Code != exp {
			t.Fatalf("request %d: expected %d, got %d", i, exp, w.Code)
		}
	}
}
