package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/jmoiron/sqlx"
)

const columns = `enrollment_id, user_id, course_id, session_id, progress, enrolled_at, updated_at`

// Upsert inserts e unless the user already owns the course. It returns the
// stored row and whether this call created it. Concurrent callers for the same
// (user, course) converge on a single row.
func Upsert(ctx context.Context, db sqlx.ExtContext, e Enrollment) (Enrollment, bool, error) {
	const q = `
	INSERT INTO enrollments (` + columns + `)
	VALUES (:enrollment_id, :user_id, :course_id, :session_id, :progress, :enrolled_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	n, err := database.NamedExecContext(ctx, db, q, e)
	if err != nil {
		return Enrollment{}, false, fmt.Errorf("inserting enrollment: %w", err)
	}

	if n == 1 {
		return e, true, nil
	}

	existing, err := Fetch(ctx, db, e.UserID, e.CourseID)
	if err != nil {
		return Enrollment{}, false, fmt.Errorf("fetching existing enrollment: %w", err)
	}
	return existing, false, nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Enrollment, error) {
	const q = `
	SELECT ` + columns + `
	FROM enrollments
	WHERE user_id = $1 AND course_id = $2`

	var e Enrollment
	if err := sqlx.GetContext(ctx, db, &e, q, userID, courseID); err != nil {
		return Enrollment{}, err
	}
	return e, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Enrollment, error) {
	const q = `
	SELECT ` + columns + `
	FROM enrollments
	WHERE user_id = $1
	ORDER BY enrolled_at, course_id`

	out := []Enrollment{}
	if err := sqlx.SelectContext(ctx, db, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

func UpdateProgress(ctx context.Context, db sqlx.ExtContext, userID string, courseID string, progress int, now time.Time) error {
	const q = `
	UPDATE enrollments
	SET progress = $3, updated_at = $4
	WHERE user_id = $1 AND course_id = $2`

	n, err := database.ExecContext(ctx, db, q, userID, courseID, progress, now)
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrDBNotFound
	}
	return nil
}
