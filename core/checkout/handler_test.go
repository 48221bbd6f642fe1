package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/core/claims"
)

func call(t *testing.T, h func(context.Context, http.ResponseWriter, *http.Request) error, clm *claims.Claims, method, id string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	r := httptest.NewRequest(method, "/", strings.NewReader(`{"price":1}`))
	r = mux.SetURLVars(r, map[string]string{"id": id})

	ctx := r.Context()
	if clm != nil {
		ctx = claims.Set(ctx, *clm)
	}

	w := httptest.NewRecorder()
	return w, h(ctx, w, r.WithContext(ctx))
}

func status(err error) int {
	_, code, ok := weberr.Response(err)
	if !ok {
		return http.StatusInternalServerError
	}
	return code
}

func TestToWebErr(t *testing.T) {
	tests := []struct {
		kind error
		want int
	}{
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrCourseNotFound, http.StatusNotFound},
		{ErrSessionNotFound, http.StatusNotFound},
		{ErrAlreadyEnrolled, http.StatusConflict},
		{ErrReconciliationConflict, http.StatusConflict},
		{ErrSessionCreationFailed, http.StatusBadGateway},
		{ErrSessionRetrievalFailed, http.StatusBadGateway},
		{ErrPersistenceFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := toWebErr(newError(tt.kind, errors.New("cause")))
		if got := status(err); got != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.kind, tt.want, got)
		}
		if !errors.Is(err, tt.kind) {
			t.Errorf("%v: kind lost in mapping", tt.kind)
		}
	}
}

func TestHandleCreate(t *testing.T) {
	env := newTestEnv(t)
	h := HandleCreate(env.svc)

	w, err := call(t, h, &alice, http.MethodPost, "ai-fundamentals")
	if err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	var co Checkout
	if err := json.NewDecoder(w.Body).Decode(&co); err != nil {
		t.Fatal(err)
	}
	if co.SessionID == "" || co.URL == "" {
		t.Fatalf("unexpected body %+v", co)
	}
	if env.gw.requests[0].AmountInCents != 9999 {
		t.Fatal("the request body must not influence the price")
	}

	w, err = call(t, h, &alice, http.MethodPost, "ai-fundamentals")
	if err != nil || w.Code != http.StatusOK {
		t.Fatalf("expected reused session with 200, got %d %v", w.Code, err)
	}

	if _, err := call(t, h, nil, http.MethodPost, "ai-fundamentals"); status(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if _, err := call(t, h, &alice, http.MethodPost, "nope"); status(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandleShowAndReconcile(t *testing.T) {
	env := newTestEnv(t)

	co, err := env.svc.CreateSession(context.Background(), alice, "nlp-mastery")
	if err != nil {
		t.Fatal(err)
	}

	before := env.gw.retrieves
	if _, err := call(t, HandleShow(env.svc), &bob, http.MethodGet, co.SessionID); status(err) != http.StatusNotFound {
		t.Fatalf("sessions of other users are hidden, got %v", err)
	}
	if _, err := call(t, HandleShow(env.svc), &alice, http.MethodGet, "cs_unknown"); status(err) != http.StatusNotFound {
		t.Fatalf("unrecorded sessions are hidden, got %v", err)
	}
	if env.gw.retrieves != before {
		t.Fatal("the provider must not be asked about sessions the caller does not own")
	}

	w, err := call(t, HandleReconcile(env.svc), &alice, http.MethodPost, co.SessionID)
	if err != nil || w.Code != http.StatusAccepted {
		t.Fatalf("an unpaid session is accepted for later, got %d %v", w.Code, err)
	}

	env.gw.complete(co.SessionID)

	w, err = call(t, HandleReconcile(env.svc), &alice, http.MethodPost, co.SessionID)
	if err != nil || w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", w.Code, err)
	}

	var res Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Enrollment == nil || !res.Created || res.Enrollment.CourseID != "nlp-mastery" {
		t.Fatalf("unexpected result %+v", res)
	}

	w, err = call(t, HandleShow(env.svc), &alice, http.MethodGet, co.SessionID)
	if err != nil || w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", w.Code, err)
	}

	if _, err := call(t, HandleReconcile(env.svc), &bob, http.MethodPost, co.SessionID); status(err) != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}
