package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/irsalhamdi/course-marketplace/core/claims"
	"github.com/irsalhamdi/course-marketplace/core/course"
	"github.com/irsalhamdi/course-marketplace/core/enrollment"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/events"
	"github.com/irsalhamdi/course-marketplace/metrics"
	"github.com/irsalhamdi/course-marketplace/payment"
	"github.com/irsalhamdi/course-marketplace/validate"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 10 * time.Second

// Storer keeps the local side of checkout: open sessions and enrollments.
type Storer interface {
	Fetch(ctx context.Context, id string) (Session, error)
	FetchOpen(ctx context.Context, userID string, courseID string) (Session, error)
	Create(ctx context.Context, s Session) error
	UpdateStatus(ctx context.Context, up StatusUp) error
	Enrolled(ctx context.Context, userID string, courseID string) (bool, error)
	Fulfill(ctx context.Context, sessionID string, e enrollment.Enrollment) (enrollment.Enrollment, bool, error)
}

// Runner runs work that must outlive the request.
type Runner interface {
	Go(fn func())
}

type Config struct {
	// BaseURL is the storefront origin the buyer returns to.
	BaseURL string
	// CancelURL overrides the default BaseURL/pricing cancel destination.
	CancelURL     string
	Currency      string
	AbandonAfter  time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

type Deps struct {
	Log     logrus.FieldLogger
	Catalog *course.Catalog
	Gateway payment.Gateway
	Store   Storer
	Events  events.Publisher
	Runner  Runner
}

// Service creates checkout sessions and turns completed ones into
// enrollments.
type Service struct {
	log     logrus.FieldLogger
	catalog *course.Catalog
	gateway payment.Gateway
	store   Storer
	events  events.Publisher
	runner  Runner
	cfg     Config
	now     func() time.Time
}

func NewService(deps Deps, cfg Config) *Service {
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	return &Service{
		log:     deps.Log,
		catalog: deps.Catalog,
		gateway: deps.Gateway,
		store:   deps.Store,
		events:  deps.Events,
		runner:  deps.Runner,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession starts a purchase of courseID for the identified user. The
// amount always comes from the catalog. A still-open session for the same user
// and course is handed out again instead of creating another one.
func (s *Service) CreateSession(ctx context.Context, clm claims.Claims, courseID string) (Checkout, error) {
	if !clm.Authenticated() {
		return Checkout{}, newError(ErrUnauthenticated, errors.New("no signed in user"))
	}

	c, ok := s.catalog.FindByID(courseID)
	if !ok {
		return Checkout{}, newError(ErrCourseNotFound, fmt.Errorf("course[%s] is not in the catalog", courseID))
	}

	log := s.log.WithFields(logrus.Fields{"user_id": clm.UserID, "course_id": c.ID})

	owned, err := s.store.Enrolled(ctx, clm.UserID, c.ID)
	if err != nil {
		return Checkout{}, newError(ErrPersistenceFailure, fmt.Errorf("checking enrollment: %w", err))
	}
	if owned {
		return Checkout{}, newError(ErrAlreadyEnrolled, fmt.Errorf("user[%s] owns course[%s]", clm.UserID, c.ID))
	}

	co, ok, err := s.reuseOpen(ctx, log, clm.UserID, c)
	if err != nil {
		return Checkout{}, err
	}
	if ok {
		metrics.CheckoutSessions.WithLabelValues("reused").Inc()
		return co, nil
	}

	req := payment.SessionRequest{
		CourseID:      c.ID,
		UserID:        clm.UserID,
		CustomerEmail: clm.Email,
		Name:          c.Name,
		Description:   c.Description,
		Image:         c.Image,
		AmountInCents: c.PriceInCents,
		Currency:      s.cfg.Currency,
		ReturnURL:     s.returnURL(c.ID),
		CancelURL:     s.cancelURL(),
	}

	sess, err := s.gateway.CreateSession(ctx, req)
	if err == nil {
		err = checkCreated(sess, c)
	}
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("failed").Inc()
		return Checkout{}, newError(ErrSessionCreationFailed, err)
	}

	now := s.now()
	rec := Session{
		ID:        sess.ID,
		Provider:  s.gateway.Name(),
		UserID:    clm.UserID,
		CourseID:  c.ID,
		Amount:    c.PriceInCents,
		URL:       sess.URL,
		Status:    payment.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.Create(ctx, rec)
	switch {
	case errors.Is(err, database.ErrDBDuplicatedEntry):
		winner, ferr := s.store.FetchOpen(ctx, clm.UserID, c.ID)
		if ferr == nil {
			log.WithField("session_id", winner.ID).Info("concurrent checkout recorded first, handing out its session")
			metrics.CheckoutSessions.WithLabelValues("reused").Inc()
			return Checkout{SessionID: winner.ID, URL: winner.URL, Reused: true}, nil
		}
		log.WithError(ferr).Warn("fetching concurrent checkout session")
	case err != nil:
		// The provider session is valid without the local record.
		log.WithError(err).WithField("session_id", sess.ID).Warn("recording checkout session")
	}

	log.WithField("session_id", sess.ID).Info("checkout session created")
	metrics.CheckoutSessions.WithLabelValues("created").Inc()

	return Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

func checkCreated(sess payment.Session, c course.Course) error {
	switch {
	case sess.ID == "" || sess.URL == "":
		return fmt.Errorf("%w: provider returned no id or url", payment.ErrMalformedSession)
	case sess.AmountInCents != c.PriceInCents:
		return fmt.Errorf("%w: provider charged %d instead of %d", payment.ErrMalformedSession, sess.AmountInCents, c.PriceInCents)
	}
	return nil
}

// reuseOpen returns the user's open session for c when the provider still
// considers it payable at the catalog price. Any other local open record is
// closed so a new session can take its place. A session that was paid but
// never reconciled is reconciled here and reported as ErrAlreadyEnrolled.
func (s *Service) reuseOpen(ctx context.Context, log logrus.FieldLogger, userID string, c course.Course) (Checkout, bool, error) {
	rec, err := s.store.FetchOpen(ctx, userID, c.ID)
	if err != nil {
		if !errors.Is(err, database.ErrDBNotFound) {
			log.WithError(err).Warn("looking up open checkout session")
		}
		return Checkout{}, false, nil
	}

	log = log.WithField("session_id", rec.ID)

	switch {
	case rec.Provider != s.gateway.Name():
		s.markStatus(ctx, log, rec.ID, payment.StatusExpired)
		return Checkout{}, false, nil
	case rec.Amount != c.PriceInCents:
		s.markStatus(ctx, log, rec.ID, payment.StatusExpired)
		return Checkout{}, false, nil
	case s.cfg.AbandonAfter > 0 && s.now().Sub(rec.CreatedAt) > s.cfg.AbandonAfter:
		log.Info("abandoning stale checkout session")
		s.markStatus(ctx, log, rec.ID, payment.StatusExpired)
		return Checkout{}, false, nil
	}

	remote, err := s.retrieve(ctx, rec.ID)
	if err != nil {
		// The open session may already be paid. Only a definitive answer
		// from the provider lets a second one be handed out.
		if payment.IsTransient(err) || ctx.Err() != nil {
			return Checkout{}, false, newError(ErrSessionCreationFailed, fmt.Errorf("checking open session[%s]: %w", rec.ID, err))
		}
		log.WithError(err).Warn("checking open checkout session, abandoning it")
		s.markStatus(ctx, log, rec.ID, payment.StatusExpired)
		return Checkout{}, false, nil
	}

	if remote.Status == payment.StatusComplete && remote.UserID == userID {
		if _, err := s.fulfill(ctx, remote); err != nil {
			return Checkout{}, false, err
		}
		return Checkout{}, false, newError(ErrAlreadyEnrolled, fmt.Errorf("session[%s] was already paid", rec.ID))
	}

	if remote.Status != payment.StatusOpen || remote.AmountInCents != c.PriceInCents || remote.UserID != userID {
		status := remote.Status
		if status == payment.StatusOpen {
			status = payment.StatusExpired
		}
		s.markStatus(ctx, log, rec.ID, status)
		return Checkout{}, false, nil
	}

	link := rec.URL
	if remote.URL != "" {
		link = remote.URL
	}
	return Checkout{SessionID: rec.ID, URL: link, Reused: true}, true, nil
}

// RetrieveSession reads a session from the provider, retrying transient
// failures. A session missing required fields is a failure.
func (s *Service) RetrieveSession(ctx context.Context, id string) (payment.Session, error) {
	if strings.TrimSpace(id) == "" {
		return payment.Session{}, newError(ErrSessionRetrievalFailed, errors.New("empty session id"))
	}

	sess, err := s.retrieve(ctx, id)
	if err != nil {
		return payment.Session{}, newError(ErrSessionRetrievalFailed, err)
	}
	return sess, nil
}

func (s *Service) retrieve(ctx context.Context, id string) (payment.Session, error) {
	var sess payment.Session

	err := retry.Do(
		func() error {
			var err error
			sess, err = s.gateway.RetrieveSession(ctx, id)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.RetryAttempts),
		retry.Delay(s.cfg.RetryDelay),
		retry.MaxDelay(s.cfg.RetryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(payment.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			metrics.GatewayRetries.Inc()
			s.log.WithError(err).WithFields(logrus.Fields{"session_id": id, "attempt": n + 1}).Warn("retrying checkout session retrieval")
		}),
	)
	if err != nil {
		return payment.Session{}, err
	}

	if err := sess.Validate(); err != nil {
		return payment.Session{}, err
	}
	return sess, nil
}

// ShowSession returns the provider's view of a session the user started.
// Ownership is checked on the local record first, so nobody else's session
// is ever read from the provider.
func (s *Service) ShowSession(ctx context.Context, clm claims.Claims, id string) (payment.Session, error) {
	if clm.UserID == "" {
		return payment.Session{}, newError(ErrUnauthenticated, errors.New("no signed in user"))
	}

	rec, err := s.store.Fetch(ctx, id)
	switch {
	case errors.Is(err, database.ErrDBNotFound):
		return payment.Session{}, newError(ErrSessionNotFound, fmt.Errorf("session[%s] is not recorded", id))
	case err != nil:
		return payment.Session{}, newError(ErrPersistenceFailure, fmt.Errorf("fetching session[%s]: %w", id, err))
	case rec.UserID != clm.UserID:
		return payment.Session{}, newError(ErrSessionNotFound, fmt.Errorf("session[%s] belongs to another user", id))
	}

	sess, err := s.RetrieveSession(ctx, id)
	if err != nil {
		return payment.Session{}, err
	}
	if sess.UserID != clm.UserID {
		return payment.Session{}, newError(ErrSessionNotFound, fmt.Errorf("provider session[%s] belongs to another user", id))
	}
	return sess, nil
}

// Reconcile checks the session with the provider on behalf of the signed in
// user and enrolls them once it is complete. Repeated calls converge on a
// single enrollment.
func (s *Service) Reconcile(ctx context.Context, clm claims.Claims, sessionID string) (Result, error) {
	if clm.UserID == "" {
		return Result{}, newError(ErrUnauthenticated, errors.New("no signed in user"))
	}

	// A session recorded for someone else is refused before the provider is
	// asked, since retrieval can capture a PayPal order.
	rec, err := s.store.Fetch(ctx, sessionID)
	switch {
	case err == nil && rec.UserID != clm.UserID:
		metrics.Reconciliations.WithLabelValues("conflict").Inc()
		return Result{}, newError(ErrReconciliationConflict, fmt.Errorf("session[%s] belongs to another user", sessionID))
	case err != nil && !errors.Is(err, database.ErrDBNotFound):
		s.log.WithError(err).WithField("session_id", sessionID).Warn("looking up checkout session")
	}

	sess, err := s.RetrieveSession(ctx, sessionID)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("failed").Inc()
		return Result{}, err
	}

	if sess.UserID != clm.UserID {
		metrics.Reconciliations.WithLabelValues("conflict").Inc()
		return Result{}, newError(ErrReconciliationConflict, fmt.Errorf("session[%s] belongs to another user", sessionID))
	}

	return s.fulfill(ctx, sess)
}

// ReconcileEvent reconciles a session reported by a provider notification.
// The identity comes from the session itself, read back from the provider.
func (s *Service) ReconcileEvent(ctx context.Context, sessionID string) (Result, error) {
	sess, err := s.RetrieveSession(ctx, sessionID)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("failed").Inc()
		return Result{}, err
	}

	return s.fulfill(ctx, sess)
}

func (s *Service) fulfill(ctx context.Context, sess payment.Session) (Result, error) {
	log := s.log.WithFields(logrus.Fields{"session_id": sess.ID, "user_id": sess.UserID, "course_id": sess.CourseID})

	if sess.Status != payment.StatusComplete {
		s.markStatus(ctx, log, sess.ID, sess.Status)
		metrics.Reconciliations.WithLabelValues(string(sess.Status)).Inc()
		return Result{Session: sess}, nil
	}

	c, ok := s.catalog.FindByID(sess.CourseID)
	if !ok {
		metrics.Reconciliations.WithLabelValues("conflict").Inc()
		return Result{}, newError(ErrReconciliationConflict, fmt.Errorf("session[%s] is for unknown course[%s]", sess.ID, sess.CourseID))
	}
	if sess.AmountInCents != c.PriceInCents {
		metrics.Reconciliations.WithLabelValues("conflict").Inc()
		return Result{}, newError(ErrReconciliationConflict, fmt.Errorf("session[%s] paid %d, course[%s] costs %d", sess.ID, sess.AmountInCents, c.ID, c.PriceInCents))
	}

	now := s.now()
	e := enrollment.Enrollment{
		ID:         validate.GenerateID(),
		UserID:     sess.UserID,
		CourseID:   sess.CourseID,
		SessionID:  sess.ID,
		EnrolledAt: now,
		UpdatedAt:  now,
	}

	got, created, err := s.store.Fulfill(ctx, sess.ID, e)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("failed").Inc()
		return Result{}, newError(ErrPersistenceFailure, err)
	}

	if !created {
		metrics.Reconciliations.WithLabelValues("duplicate").Inc()
		return Result{Session: sess, Enrollment: &got}, nil
	}

	log.Info("user enrolled")
	metrics.Reconciliations.WithLabelValues("enrolled").Inc()
	s.publish(got)

	return Result{Session: sess, Enrollment: &got, Created: true}, nil
}

// TODO: write events to an outbox table in the fulfill transaction so they
// survive a crash between commit and publish.
func (s *Service) publish(e enrollment.Enrollment) {
	s.runner.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.events.EnrollmentCreated(ctx, e); err != nil {
			metrics.EventsPublished.WithLabelValues("failed").Inc()
			s.log.WithError(err).WithField("enrollment_id", e.ID).Error("publishing enrollment event")
			return
		}
		metrics.EventsPublished.WithLabelValues("ok").Inc()
	})
}

func (s *Service) markStatus(ctx context.Context, log logrus.FieldLogger, id string, status payment.Status) {
	if status == payment.StatusOpen || !status.Valid() {
		return
	}

	up := StatusUp{ID: id, Status: status, UpdatedAt: s.now()}
	if err := s.store.UpdateStatus(ctx, up); err != nil {
		log.WithError(err).Warn("updating checkout session status")
	}
}

func (s *Service) returnURL(courseID string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/course/" + url.PathEscape(courseID) + "?session_id=" + payment.SessionIDPlaceholder
}

func (s *Service) cancelURL() string {
	if s.cfg.CancelURL != "" {
		return s.cfg.CancelURL
	}
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/pricing"
}
