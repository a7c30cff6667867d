package models

import "time"

// RegistrationStatus is the derived tri-state for a student-course pair.
// It is computed from the request and enrollment relations, never stored.
type RegistrationStatus string

const (
	StatusNone      RegistrationStatus = "NONE"
	StatusRequested RegistrationStatus = "REQUESTED"
	StatusEnrolled  RegistrationStatus = "ENROLLED"
)

// CourseRequest is a pending enrollment ask awaiting instructor decision.
type CourseRequest struct {
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseEnrollment is a confirmed, active course membership.
type CourseEnrollment struct {
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseWithStatus annotates a course with one student's registration
// status. ActionAt carries the request or enrollment timestamp when the
// status is not NONE.
type CourseWithStatus struct {
	Course
	Status   RegistrationStatus `db:"status" json:"status"`
	ActionAt *time.Time         `db:"action_at" json:"action_at,omitempty"`
}

// RosterEntry is one student on a course roster, annotated with the
// pair status and the timestamp of the underlying action.
type RosterEntry struct {
	StudentID string             `db:"student_id" json:"student_id"`
	Username  string             `db:"username" json:"username"`
	Email     string             `db:"email" json:"email"`
	FirstName string             `db:"first_name" json:"first_name"`
	LastName  string             `db:"last_name" json:"last_name"`
	Status    RegistrationStatus `db:"status" json:"status"`
	ActionAt  time.Time          `db:"action_at" json:"action_at"`
}
