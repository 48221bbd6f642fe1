package enrollment

import (
	"time"

	"github.com/irsalhamdi/course-marketplace/core/course"
)

// Enrollment is the durable proof that a user bought a course. There is at
// most one per (user, course).
type Enrollment struct {
	ID         string    `json:"id" db:"enrollment_id"`
	UserID     string    `json:"userId" db:"user_id"`
	CourseID   string    `json:"courseId" db:"course_id"`
	SessionID  string    `json:"sessionId" db:"session_id"`
	Progress   int       `json:"progress" db:"progress"`
	EnrolledAt time.Time `json:"enrolledAt" db:"enrolled_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

type ProgressUp struct {
	Progress *int `json:"progress" validate:"required,gte=0,lte=100"`
}

// Owned pairs an enrollment with its catalog entry for the dashboard.
type Owned struct {
	Enrollment
	Course course.Course `json:"course"`
}
