package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/core/claims"
)

// writeErrors answers with the status attached to a returned error. It runs
// inside LoadAndSave, which buffers the response.
func writeErrors(handler web.Handler) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := handler(ctx, w, r); err != nil {
			_, status, ok := weberr.Response(err)
			if !ok {
				status = http.StatusInternalServerError
			}
			w.WriteHeader(status)
		}
		return nil
	}
}

func serve(h web.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h(r.Context(), w, r)
	})
}

func TestSessionMiddlewares(t *testing.T) {
	sm := scs.New()
	load := LoadAndSave(sm)

	signin := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		u := User{ID: "u1", Email: "asha@example.com", Role: claims.RoleUser}
		if err := login(ctx, sm, u); err != nil {
			return err
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	var seen claims.Claims
	whoami := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		seen, _ = claims.Get(ctx)
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	mux := http.NewServeMux()
	mux.Handle("/login", serve(web.WrapMiddleware([]web.Middleware{load, writeErrors}, signin)))
	mux.Handle("/logout", serve(web.WrapMiddleware([]web.Middleware{load, writeErrors}, HandleLogout(sm))))
	mux.Handle("/private", serve(web.WrapMiddleware([]web.Middleware{load, writeErrors, Authenticate(sm)}, whoami)))
	mux.Handle("/public", serve(web.WrapMiddleware([]web.Middleware{load, writeErrors, Identify(sm)}, whoami)))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Jar: jar}

	get := func(path string) int {
		t.Helper()
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get("/private"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", code)
	}

	seen = claims.Claims{}
	if code := get("/public"); code != http.StatusNoContent || seen.Authenticated() {
		t.Fatalf("anonymous requests pass without claims, got %d %+v", code, seen)
	}

	if code := get("/login"); code != http.StatusNoContent {
		t.Fatalf("login failed with %d", code)
	}

	if code := get("/private"); code != http.StatusNoContent {
		t.Fatalf("expected access after login, got %d", code)
	}
	if seen.UserID != "u1" || seen.Email != "asha@example.com" || seen.Role != claims.RoleUser {
		t.Fatalf("unexpected claims %+v", seen)
	}

	seen = claims.Claims{}
	if code := get("/public"); code != http.StatusNoContent || seen.UserID != "u1" {
		t.Fatalf("identified requests carry claims, got %d %+v", code, seen)
	}

	if code := get("/logout"); code != http.StatusNoContent {
		t.Fatalf("logout failed with %d", code)
	}
	if code := get("/private"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", code)
	}
}

func TestHandleOauthLoginUnknownProvider(t *testing.T) {
	sm := scs.New()
	h := web.WrapMiddleware([]web.Middleware{LoadAndSave(sm), writeErrors}, HandleOauthLogin(sm, map[string]Provider{}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/auth/oauth-login/github", nil)
	serve(h).ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Asha@Example.COM "); got != "asha@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
}
