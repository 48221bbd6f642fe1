package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

const (
	metaCourseID = "courseId"
	metaUserID   = "userId"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type Stripe struct {
	api           *stripecl.API
	webhookSecret string
}

func NewStripe(api *stripecl.API, webhookSecret string) *Stripe {
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

func (g *Stripe) Name() string { return "stripe" }

func (g *Stripe) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(req.Name),
		Description: stripe.String(req.Description),
	}
	if req.Image != "" {
		product.Images = stripe.StringSlice([]string{req.Image})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(req.ReturnURL),
		CustomerEmail: stripe.String(req.CustomerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(req.AmountInCents),
				ProductData: product,
			},
		}},
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}
	params.Context = ctx
	params.AddMetadata(metaCourseID, req.CourseID)
	params.AddMetadata(metaUserID, req.UserID)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("creating stripe session: %w", classifyStripe(err))
	}

	sess := fromStripe(s)
	if sess.Status == "" {
		sess.Status = StatusOpen
	}
	if sess.Currency == "" {
		sess.Currency = req.Currency
	}
	return sess, nil
}

func (g *Stripe) RetrieveSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return Session{}, fmt.Errorf("retrieving stripe session[%s]: %w", id, classifyStripe(err))
	}

	return fromStripe(s), nil
}

// ParseWebhook verifies a webhook delivery and returns the id of the checkout
// session it reports as paid. ok is false for events that need no action.
func (g *Stripe) ParseWebhook(payload []byte, signature string) (id string, ok bool, err error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
	default:
		return "", false, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return "", false, fmt.Errorf("%w: decoding event data: %v", ErrMalformedSession, err)
	}

	if s.Mode != stripe.CheckoutSessionModePayment || s.ID == "" {
		return "", false, nil
	}

	return s.ID, true, nil
}

// A session only counts as complete once the payment itself is settled;
// delayed payment methods complete the session while still unpaid.
func fromStripe(s *stripe.CheckoutSession) Session {
	status := Status(s.Status)
	if status == StatusComplete && s.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		status = StatusOpen
	}

	return Session{
		ID:            s.ID,
		URL:           s.URL,
		Status:        status,
		CourseID:      s.Metadata[metaCourseID],
		UserID:        s.Metadata[metaUserID],
		AmountInCents: s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: s.CustomerEmail,
	}
}

func classifyStripe(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && transientStatus(se.HTTPStatusCode) {
		return &TransientError{Err: err}
	}
	return err
}
