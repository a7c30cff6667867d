package models

import "time"

// CourseType distinguishes delivery mode.
type CourseType string

const (
	CourseTypeOnline CourseType = "ONLINE"
	CourseTypeGround CourseType = "GROUND"
)

// Course represents a published course. The owning instructor is set at
// creation and never changes.
type Course struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Hours        int        `db:"hours" json:"hours"`
	Type         CourseType `db:"type" json:"type"`
	Building     string     `db:"building" json:"building"`
	InstructorID string     `db:"instructor_id" json:"instructor_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
