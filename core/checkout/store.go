package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/course-marketplace/core/enrollment"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/payment"
	"github.com/jmoiron/sqlx"
)

const columns = `session_id, provider, user_id, course_id, amount, url, status, created_at, updated_at`

// Create records s. A second open session for the same user and course fails
// with database.ErrDBDuplicatedEntry.
func Create(ctx context.Context, db sqlx.ExtContext, s Session) error {
	const q = `
	INSERT INTO checkout_sessions (` + columns + `)
	VALUES (:session_id, :provider, :user_id, :course_id, :amount, :url, :status, :created_at, :updated_at)
	ON CONFLICT DO NOTHING`

	n, err := database.NamedExecContext(ctx, db, q, s)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("checkout session[%s]: %w", s.ID, database.ErrDBDuplicatedEntry)
	}
	return nil
}

func FetchOpen(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Session, error) {
	const q = `
	SELECT ` + columns + `
	FROM checkout_sessions
	WHERE user_id = $1 AND course_id = $2 AND status = $3`

	var s Session
	if err := sqlx.GetContext(ctx, db, &s, q, userID, courseID, payment.StatusOpen); err != nil {
		return Session{}, err
	}
	return s, nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Session, error) {
	const q = `
	SELECT ` + columns + `
	FROM checkout_sessions
	WHERE session_id = $1`

	var s Session
	if err := sqlx.GetContext(ctx, db, &s, q, id); err != nil {
		return Session{}, err
	}
	return s, nil
}

// UpdateStatus moves a session out of open. Sessions that are not recorded
// locally are ignored.
func UpdateStatus(ctx context.Context, db sqlx.ExtContext, up StatusUp) error {
	const q = `
	UPDATE checkout_sessions
	SET status = :status, updated_at = :updated_at
	WHERE session_id = :session_id AND status <> :status`

	_, err := database.NamedExecContext(ctx, db, q, up)
	return err
}

// Store backs Service with PostgreSQL.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Fetch(ctx context.Context, id string) (Session, error) {
	return Fetch(ctx, s.db, id)
}

func (s *Store) FetchOpen(ctx context.Context, userID string, courseID string) (Session, error) {
	return FetchOpen(ctx, s.db, userID, courseID)
}

func (s *Store) Create(ctx context.Context, sess Session) error {
	return Create(ctx, s.db, sess)
}

func (s *Store) UpdateStatus(ctx context.Context, up StatusUp) error {
	return UpdateStatus(ctx, s.db, up)
}

func (s *Store) Enrolled(ctx context.Context, userID string, courseID string) (bool, error) {
	_, err := enrollment.Fetch(ctx, s.db, userID, courseID)
	switch {
	case errors.Is(err, database.ErrDBNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Fulfill writes the enrollment and completes the local session in one
// transaction.
func (s *Store) Fulfill(ctx context.Context, sessionID string, e enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
	var (
		got     enrollment.Enrollment
		created bool
	)

	err := database.Transaction(s.db, func(tx sqlx.ExtContext) error {
		var err error
		got, created, err = enrollment.Upsert(ctx, tx, e)
		if err != nil {
			return fmt.Errorf("upserting enrollment: %w", err)
		}

		up := StatusUp{ID: sessionID, Status: payment.StatusComplete, UpdatedAt: time.Now().UTC()}
		if err := UpdateStatus(ctx, tx, up); err != nil {
			return fmt.Errorf("completing checkout session: %w", err)
		}
		return nil
	})
	if err != nil {
		return enrollment.Enrollment{}, false, fmt.Errorf("fulfilling session[%s] for user[%s]: %w", sessionID, e.UserID, err)
	}

	return got, created, nil
}
