package checkout

import "errors"

var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrCourseNotFound         = errors.New("course not found")
	ErrAlreadyEnrolled        = errors.New("course already owned")
	ErrSessionNotFound        = errors.New("checkout session not found")
	ErrSessionCreationFailed  = errors.New("checkout session creation failed")
	ErrSessionRetrievalFailed = errors.New("checkout session retrieval failed")
	ErrReconciliationConflict = errors.New("reconciliation conflict")
	ErrPersistenceFailure     = errors.New("persistence failure")
)

// Error tags a failure with one of the kinds above. errors.Is matches both the
// kind and anything in the wrapped chain.
type Error struct {
	Kind error
	Err  error
}

func newError(kind error, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }
