package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/course-marketplace/core/user"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	INSERT INTO users (user_id, email, password_hash, role, created_at, updated_at)
	VALUES (:user_id, :email, :password_hash, :role, :created_at, :updated_at)`

	_, err := database.NamedExecContext(ctx, db, q, u)
	return err
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `
	SELECT user_id, email, password_hash, role, created_at, updated_at
	FROM users
	WHERE email = $1`

	var u User
	if err := sqlx.GetContext(ctx, db, &u, q, normalizeEmail(email)); err != nil {
		return User{}, err
	}
	return u, nil
}

// register stores u with an empty profile in one transaction. A taken email
// fails with database.ErrDBDuplicatedEntry.
func register(ctx context.Context, db *sqlx.DB, u User, fullName string) error {
	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := Create(ctx, tx, u); err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		p := user.Profile{
			UserID:    u.ID,
			FullName:  fullName,
			Country:   user.DefaultCountry,
			UpdatedAt: u.UpdatedAt,
		}
		if err := user.Create(ctx, tx, p); err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("registering %s: %w", u.Email, err)
	}
	return nil
}

func newUser(id string, email string, hash []byte, role string, now time.Time) User {
	return User{
		ID:           id,
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
