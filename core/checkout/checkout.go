package checkout

import (
	"time"

	"github.com/irsalhamdi/course-marketplace/core/enrollment"
	"github.com/irsalhamdi/course-marketplace/payment"
)

// Session is the local reference to a provider checkout session. The provider
// stays the source of truth for its status.
type Session struct {
	ID        string         `json:"id" db:"session_id"`
	Provider  string         `json:"provider" db:"provider"`
	UserID    string         `json:"userId" db:"user_id"`
	CourseID  string         `json:"courseId" db:"course_id"`
	Amount    int64          `json:"amount" db:"amount"`
	URL       string         `json:"url" db:"url"`
	Status    payment.Status `json:"status" db:"status"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at"`
}

type StatusUp struct {
	ID        string         `db:"session_id"`
	Status    payment.Status `db:"status"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Checkout is where the buyer is sent to pay.
type Checkout struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	Reused    bool   `json:"reused"`
}

// Result is the outcome of a reconciliation. Enrollment is nil while the
// session is not complete.
type Result struct {
	Session    payment.Session        `json:"session"`
	Enrollment *enrollment.Enrollment `json:"enrollment,omitempty"`
	Created    bool                   `json:"created"`
}
