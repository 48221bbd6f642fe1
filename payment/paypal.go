package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/plutov/paypal/v4"
)

const referenceSep = "|"

const (
	orderApproved  = "APPROVED"
	orderCompleted = "COMPLETED"
	orderVoided    = "VOIDED"
)

type PayPal struct {
	client *paypal.Client
}

// NewPayPal builds the gateway and fetches the first access token, so bad
// credentials fail at startup.
func NewPayPal(ctx context.Context, clientID, secret, apiBase string) (*PayPal, error) {
	c, err := paypal.NewClient(clientID, secret, apiBase)
	if err != nil {
		return nil, fmt.Errorf("building the paypal client: %w", err)
	}

	if _, err := c.GetAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("getting the first paypal access token: %w", err)
	}

	return &PayPal{client: c}, nil
}

func (g *PayPal) Name() string { return "paypal" }

// CreateSession creates an order with a single purchase unit whose
// reference_id carries the course and user ids.
func (g *PayPal) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	currency := strings.ToUpper(req.Currency)
	value := formatCents(req.AmountInCents)

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: req.CourseID + referenceSep + req.UserID,
		Description: req.Name,
		Items: []paypal.Item{{
			Quantity:    "1",
			Name:        req.Name,
			Description: req.Description,
			UnitAmount:  &paypal.Money{Currency: currency, Value: value},
		}},
		Amount: &paypal.PurchaseUnitAmount{
			Currency: currency,
			Value:    value,
			Breakdown: &paypal.PurchaseUnitAmountBreakdown{
				ItemTotal: &paypal.Money{Currency: currency, Value: value},
			},
		},
	}}

	app := &paypal.ApplicationContext{
		ReturnURL: withoutPlaceholder(req.ReturnURL),
		CancelURL: req.CancelURL,
	}

	ord, err := g.client.CreateOrder(ctx, "CAPTURE", units, nil, app)
	if err != nil {
		return Session{}, fmt.Errorf("creating paypal order: %w", classifyPayPal(err))
	}

	// A minimal create response carries no purchase units.
	if len(ord.PurchaseUnits) == 0 {
		full, err := g.client.GetOrder(ctx, ord.ID)
		if err != nil {
			return Session{}, fmt.Errorf("reading created paypal order[%s]: %w", ord.ID, classifyPayPal(err))
		}
		ord.PurchaseUnits = full.PurchaseUnits
	}

	sess, err := fromOrder(ord, ord.Status)
	if err != nil {
		return Session{}, err
	}
	sess.CustomerEmail = req.CustomerEmail
	if sess.Status == "" {
		sess.Status = StatusOpen
	}
	return sess, nil
}

// RetrieveSession reads the order and captures it when the buyer approved the
// payment, which is what completes a PayPal checkout.
func (g *PayPal) RetrieveSession(ctx context.Context, id string) (Session, error) {
	ord, err := g.client.GetOrder(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("retrieving paypal order[%s]: %w", id, classifyPayPal(err))
	}

	status := ord.Status
	if status == orderApproved {
		resp, err := g.client.CaptureOrder(ctx, id, paypal.CaptureOrderRequest{})
		if err != nil {
			return Session{}, fmt.Errorf("capturing paypal order[%s]: %w", id, classifyPayPal(err))
		}
		status = resp.Status
	}

	return fromOrder(ord, status)
}

func fromOrder(ord *paypal.Order, status string) (Session, error) {
	sess := Session{ID: ord.ID, Status: orderStatus(status), URL: approveURL(ord)}

	if len(ord.PurchaseUnits) != 1 {
		return sess, fmt.Errorf("%w: order[%s] has %d purchase units", ErrMalformedSession, ord.ID, len(ord.PurchaseUnits))
	}
	pu := ord.PurchaseUnits[0]

	courseID, userID, ok := strings.Cut(pu.ReferenceID, referenceSep)
	if !ok {
		return sess, fmt.Errorf("%w: order[%s] reference %q", ErrMalformedSession, ord.ID, pu.ReferenceID)
	}
	sess.CourseID, sess.UserID = courseID, userID

	if pu.Amount != nil {
		cents, err := parseCents(pu.Amount.Value)
		if err != nil {
			return sess, fmt.Errorf("%w: order[%s] amount: %v", ErrMalformedSession, ord.ID, err)
		}
		sess.AmountInCents = cents
		sess.Currency = strings.ToLower(pu.Amount.Currency)
	}

	return sess, nil
}

func orderStatus(s string) Status {
	switch s {
	case orderCompleted:
		return StatusComplete
	case orderVoided:
		return StatusExpired
	case "":
		return ""
	}
	return StatusOpen
}

func approveURL(ord *paypal.Order) string {
	for _, l := range ord.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

// PayPal appends its own token to the return URL instead of substituting a
// placeholder, so the placeholder parameter is dropped.
func withoutPlaceholder(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	for k, vs := range q {
		if len(vs) == 1 && vs[0] == SessionIDPlaceholder {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

// parseCents accepts unsigned decimal amounts with at most two decimals.
func parseCents(v string) (int64, error) {
	whole, frac, dot := strings.Cut(v, ".")
	if !digits(whole) || (dot && !digits(frac)) {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("too many decimals in %q", v)
	}
	frac += strings.Repeat("0", 2-len(frac))

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", v, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", v, err)
	}
	return w*100 + f, nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func classifyPayPal(err error) error {
	var pe *paypal.ErrorResponse
	if errors.As(err, &pe) && pe.Response != nil && transientStatus(pe.Response.StatusCode) {
		return &TransientError{Err: err}
	}
	return err
}
