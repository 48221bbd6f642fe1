// Package payment adapts hosted-checkout providers to a single session model.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// SessionIDPlaceholder is substituted by the provider with the session id in
// the return destination.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

var ErrMalformedSession = errors.New("malformed checkout session")

type Status string

const (
	StatusOpen     Status = "open"
	StatusComplete Status = "complete"
	StatusExpired  Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusComplete, StatusExpired:
		return true
	}
	return false
}

// Session is a provider checkout session reduced to what reconciliation needs.
type Session struct {
	ID            string `json:"id"`
	URL           string `json:"url,omitempty"`
	Status        Status `json:"status"`
	CourseID      string `json:"courseId"`
	UserID        string `json:"userId"`
	AmountInCents int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

// Validate fails with ErrMalformedSession when a required field is missing.
func (s Session) Validate() error {
	var missing []string
	if s.ID == "" {
		missing = append(missing, "id")
	}
	if !s.Status.Valid() {
		missing = append(missing, fmt.Sprintf("status(%q)", s.Status))
	}
	if s.CourseID == "" {
		missing = append(missing, "metadata.courseId")
	}
	if s.UserID == "" {
		missing = append(missing, "metadata.userId")
	}
	if s.AmountInCents < 0 {
		missing = append(missing, "amount")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: invalid %s", ErrMalformedSession, strings.Join(missing, ", "))
	}
	return nil
}

// SessionRequest describes a single-item, single-quantity, one-time payment.
type SessionRequest struct {
	CourseID      string
	UserID        string
	CustomerEmail string
	Name          string
	Description   string
	Image         string
	AmountInCents int64
	Currency      string
	ReturnURL     string
	CancelURL     string
}

type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	RetrieveSession(ctx context.Context, id string) (Session, error)
}

// TransientError marks a provider failure that may succeed when retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne)
}

func transientStatus(code int) bool {
	return code == 429 || code >= 500
}
