package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/course-marketplace/api/middleware"
	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/core/auth"
	"github.com/irsalhamdi/course-marketplace/core/checkout"
	"github.com/irsalhamdi/course-marketplace/core/claims"
	"github.com/irsalhamdi/course-marketplace/core/course"
	"github.com/irsalhamdi/course-marketplace/core/enrollment"
	"github.com/irsalhamdi/course-marketplace/core/user"
	"github.com/irsalhamdi/course-marketplace/core/wishlist"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/metrics"
	"github.com/irsalhamdi/course-marketplace/payment"
	"github.com/irsalhamdi/course-marketplace/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Catalog          *course.Catalog
	Checkout         *checkout.Service
	Stripe           *payment.Stripe
	CheckoutLimiter  *rate.Limiter
	Providers        map[string]auth.Provider
	LoginRedirectURL string
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Metrics())
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	ident := auth.Identify(cfg.Session)

	var limit web.Middleware
	if cfg.CheckoutLimiter != nil {
		limit = middleware.RateLimit(cfg.CheckoutLimiter, func(ctx context.Context, r *http.Request) string {
			clm, _ := claims.Get(ctx)
			return clm.UserID
		})
	}

	a.Router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	a.Handle(http.MethodGet, "/health", handleHealth(cfg.DB))

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateCurrent(cfg.DB), authen)

	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.Catalog))
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.Catalog))
	a.Handle(http.MethodPost, "/courses/{id}/checkout", checkout.HandleCreate(cfg.Checkout), authen, limit)

	a.Handle(http.MethodGet, "/checkout/sessions/{id}", checkout.HandleShow(cfg.Checkout), authen)
	a.Handle(http.MethodPost, "/checkout/sessions/{id}/reconcile", checkout.HandleReconcile(cfg.Checkout), authen)
	if cfg.Stripe != nil {
		a.Handle(http.MethodPost, "/checkout/webhooks/stripe", checkout.HandleStripeWebhook(cfg.Log, cfg.Checkout, cfg.Stripe))
	}

	wl := wishlist.NewStore(cfg.DB)
	a.Handle(http.MethodGet, "/wishlist", wishlist.HandleList(cfg.Log, wl), ident)
	a.Handle(http.MethodGet, "/wishlist/courses", wishlist.HandleListCourses(cfg.Log, wl, cfg.Catalog), ident)
	a.Handle(http.MethodPut, "/wishlist/items", wishlist.HandleAdd(wl, cfg.Catalog), authen)
	a.Handle(http.MethodDelete, "/wishlist/items/{course_id}", wishlist.HandleRemove(wl), authen)

	a.Handle(http.MethodGet, "/enrollments", enrollment.HandleListOwned(cfg.DB, cfg.Catalog), authen)
	a.Handle(http.MethodPut, "/enrollments/{course_id}/progress", enrollment.HandleUpdateProgress(cfg.DB), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := database.StatusCheck(ctx, db); err != nil {
			return weberr.NewError(fmt.Errorf("database not ready: %w", err), "database not ready", http.StatusServiceUnavailable)
		}

		status := struct {
			Status string `json:"status"`
		}{Status: "ok"}

		return web.Respond(ctx, w, status, http.StatusOK)
	}
}

