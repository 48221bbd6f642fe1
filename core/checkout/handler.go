package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/irsalhamdi/course-marketplace/api/web"
	"github.com/irsalhamdi/course-marketplace/api/weberr"
	"github.com/irsalhamdi/course-marketplace/core/claims"
	"github.com/irsalhamdi/course-marketplace/payment"
	"github.com/sirupsen/logrus"
)

const maxWebhookBytes = int64(65536)

// toWebErr maps checkout failures to responses. Provider and storage details
// stay in the logs.
func toWebErr(err error) error {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return weberr.NewError(err, "Please sign in to purchase a course", http.StatusUnauthorized)
	case errors.Is(err, ErrCourseNotFound):
		return weberr.NewError(err, "Course not found", http.StatusNotFound)
	case errors.Is(err, ErrSessionNotFound):
		return weberr.NotFound(err)
	case errors.Is(err, ErrAlreadyEnrolled):
		return weberr.Conflict(err, "You already own this course")
	case errors.Is(err, ErrReconciliationConflict):
		return weberr.Conflict(err, "This checkout session cannot be applied to your account")
	case errors.Is(err, ErrSessionCreationFailed):
		return weberr.BadGateway(err, "Failed to create checkout session")
	case errors.Is(err, ErrSessionRetrievalFailed):
		return weberr.BadGateway(err, "Failed to retrieve session")
	case errors.Is(err, ErrPersistenceFailure):
		return weberr.InternalError(err)
	}
	return err
}

// HandleCreate starts a checkout for the course in the path. The body is
// ignored so clients cannot supply a price.
func HandleCreate(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, _ := claims.Get(ctx)
		courseID := web.Param(r, "id")

		co, err := svc.CreateSession(ctx, clm, courseID)
		if err != nil {
			return toWebErr(err)
		}

		status := http.StatusCreated
		if co.Reused {
			status = http.StatusOK
		}
		return web.Respond(ctx, w, co, status)
	}
}

// HandleShow reports a session's provider status to its owner.
func HandleShow(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, _ := claims.Get(ctx)
		id := web.Param(r, "id")

		sess, err := svc.ShowSession(ctx, clm, id)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, sess, http.StatusOK)
	}
}

// HandleReconcile is called when the buyer returns from the provider. It
// answers 202 while the payment is not complete yet.
func HandleReconcile(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, _ := claims.Get(ctx)
		id := web.Param(r, "id")

		res, err := svc.Reconcile(ctx, clm, id)
		if err != nil {
			return toWebErr(err)
		}

		status := http.StatusOK
		if res.Enrollment == nil {
			status = http.StatusAccepted
		}
		return web.Respond(ctx, w, res, status)
	}
}

// HandleStripeWebhook reconciles sessions reported by Stripe. Failures worth
// another delivery answer with an error status so Stripe retries them.
func HandleStripeWebhook(log logrus.FieldLogger, svc *Service, gw *payment.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.NewError(err, "request body too large", http.StatusRequestEntityTooLarge)
		}

		id, ok, err := gw.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("parsing stripe event: %w", err))
		}
		if !ok {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		_, err = svc.ReconcileEvent(ctx, id)
		switch {
		case errors.Is(err, ErrReconciliationConflict), errors.Is(err, payment.ErrMalformedSession):
			log.WithError(err).WithField("session_id", id).Error("stripe reported a session that cannot be reconciled")
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		case err != nil:
			return toWebErr(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
