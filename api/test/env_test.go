package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/course-marketplace/api"
	"github.com/irsalhamdi/course-marketplace/api/background"
	"github.com/irsalhamdi/course-marketplace/config"
	"github.com/irsalhamdi/course-marketplace/core/auth"
	"github.com/irsalhamdi/course-marketplace/core/checkout"
	"github.com/irsalhamdi/course-marketplace/core/course"
	"github.com/irsalhamdi/course-marketplace/core/enrollment"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/payment"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const testWebhookSecret = "whsec_integration"

type recordingPublisher struct {
	mu     sync.Mutex
	events []enrollment.Enrollment
}

func (p *recordingPublisher) EnrollmentCreated(ctx context.Context, e enrollment.Enrollment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []enrollment.Enrollment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]enrollment.Enrollment(nil), p.events...)
}

type TestEnv struct {
	*httptest.Server
	DB            *sqlx.DB
	Stripe        *mockStripe
	Background    *background.Background
	Events        *recordingPublisher
	WebhookSecret string
}

// NewTestEnv starts PostgreSQL in Docker, migrates it and serves the API
// against a mock Stripe. The test is skipped when Docker is unreachable.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(res); err != nil {
			t.Logf("purging postgres: %v", err)
		}
	})
	_ = res.Expire(300)

	cfg := config.DB{
		User:         "postgres",
		Password:     "postgres",
		Host:         res.GetHostPort("5432/tcp"),
		Name:         name,
		MaxIdleConns: 2,
		MaxOpenConns: 10,
		DisableTLS:   true,
	}

	var db *sqlx.DB
	err = pool.Retry(func() error {
		var err error
		if db, err = database.Open(cfg); err != nil {
			return err
		}
		return db.Ping()
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	ms := newMockStripe()
	stripeSrv := httptest.NewServer(ms.handle())
	t.Cleanup(stripeSrv.Close)

	backends := &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(stripeSrv.URL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		}),
	}
	strp := &stripecl.API{}
	strp.Init("sk_test_integration", backends)
	gw := payment.NewStripe(strp, testWebhookSecret)

	catalog := course.Default()
	bg := background.New(log)
	pub := &recordingPublisher{}

	svc := checkout.NewService(checkout.Deps{
		Log:     log,
		Catalog: catalog,
		Gateway: gw,
		Store:   checkout.NewStore(db),
		Events:  pub,
		Runner:  bg,
	}, checkout.Config{
		BaseURL:       "http://courses.test",
		Currency:      "usd",
		AbandonAfter:  time.Hour,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		RetryMaxDelay: 10 * time.Millisecond,
	})

	mux := api.APIMux(api.APIConfig{
		Log:              log,
		DB:               db,
		Session:          scs.New(),
		Catalog:          catalog,
		Checkout:         svc,
		Stripe:           gw,
		Providers:        map[string]auth.Provider{},
		LoginRedirectURL: "http://courses.test",
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	srv.Client().Jar = jar

	return &TestEnv{
		Server:        srv,
		DB:            db,
		Stripe:        ms,
		Background:    bg,
		Events:        pub,
		WebhookSecret: testWebhookSecret,
	}, nil
}

// call sends body as JSON and decodes the response into out when given.
func (env *TestEnv) call(t *testing.T, method string, path string, body any, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return w.StatusCode
}

func (env *TestEnv) Signup(t *testing.T, email string, pass string, name string) auth.User {
	t.Helper()

	var u auth.User
	in := auth.Signup{Email: email, Password: pass, FullName: name}
	if code := env.call(t, http.MethodPost, "/auth/signup", in, &u); code != http.StatusCreated {
		t.Fatalf("signing up %s: status %d", email, code)
	}
	return u
}

func (env *TestEnv) Login(t *testing.T, email string, pass string) {
	t.Helper()

	in := auth.Login{Email: email, Password: pass}
	if code := env.call(t, http.MethodPost, "/auth/login", in, nil); code != http.StatusOK {
		t.Fatalf("logging in %s: status %d", email, code)
	}
}

func (env *TestEnv) Logout(t *testing.T) {
	t.Helper()

	if code := env.call(t, http.MethodPost, "/auth/logout", nil, nil); code != http.StatusNoContent {
		t.Fatalf("logging out: status %d", code)
	}
}
