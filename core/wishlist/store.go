package wishlist

import (
	"context"

	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/jmoiron/sqlx"
)

// Add saves it. Adding a course twice keeps the first entry.
func Add(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO wishlist (user_id, course_id, created_at)
	VALUES (:user_id, :course_id, :created_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	_, err := database.NamedExecContext(ctx, db, q, it)
	return err
}

// Remove deletes the entry and reports database.ErrDBNotFound when there was
// none.
func Remove(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) error {
	const q = `
	DELETE FROM wishlist
	WHERE user_id = $1 AND course_id = $2`

	n, err := database.ExecContext(ctx, db, q, userID, courseID)
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrDBNotFound
	}
	return nil
}

func List(ctx context.Context, db sqlx.ExtContext, userID string) ([]Item, error) {
	const q = `
	SELECT user_id, course_id, created_at
	FROM wishlist
	WHERE user_id = $1
	ORDER BY created_at, course_id`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, userID); err != nil {
		return nil, err
	}
	return items, nil
}

// Store backs the wishlist handlers with PostgreSQL.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Add(ctx context.Context, it Item) error {
	return Add(ctx, s.db, it)
}

func (s *Store) Remove(ctx context.Context, userID string, courseID string) error {
	return Remove(ctx, s.db, userID, courseID)
}

func (s *Store) List(ctx context.Context, userID string) ([]Item, error) {
	return List(ctx, s.db, userID)
}
