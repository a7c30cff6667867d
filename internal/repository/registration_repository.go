package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/crs-api/internal/models"
)

// RegistrationRepository persists the request and enrollment relations and
// serves the merged status views over them.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// StatusFor derives the registration status for a student-course pair.
// An enrollment row wins over a request row; neither means NONE.
func (r *RegistrationRepository) StatusFor(ctx context.Context, studentID, courseID string) (models.RegistrationStatus, error) {
	const query = `SELECT CASE
        WHEN EXISTS (SELECT 1 FROM course_enrollments WHERE student_id = $1 AND course_id = $2) THEN 'ENROLLED'
        WHEN EXISTS (SELECT 1 FROM course_requests WHERE student_id = $1 AND course_id = $2) THEN 'REQUESTED'
        ELSE 'NONE' END AS status`
	var status models.RegistrationStatus
	if err := r.db.GetContext(ctx, &status, query, studentID, courseID); err != nil {
		return "", fmt.Errorf("derive registration status: %w", err)
	}
	return status, nil
}

// CreateRequest inserts a pending request row.
func (r *RegistrationRepository) CreateRequest(ctx context.Context, request *models.CourseRequest) error {
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_requests (student_id, course_id, created_at) VALUES (:student_id, :course_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create course request: %w", err)
	}
	return nil
}

// Approve moves a pair from requested to enrolled in one transaction.
// Returns sql.ErrNoRows when no pending request exists, in which case no
// enrollment row is created.
func (r *RegistrationRepository) Approve(ctx context.Context, studentID, courseID string, enrolledAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM course_requests WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return fmt.Errorf("delete course request: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve rows affected: %w", err)
	}
	if deleted == 0 {
		return sql.ErrNoRows
	}

	enrollment := &models.CourseEnrollment{StudentID: studentID, CourseID: courseID, CreatedAt: enrolledAt}
	const insert = `INSERT INTO course_enrollments (student_id, course_id, created_at) VALUES (:student_id, :course_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve tx: %w", err)
	}
	return nil
}

// DeleteRequest removes a pending request row, reporting how many rows
// were deleted.
func (r *RegistrationRepository) DeleteRequest(ctx context.Context, studentID, courseID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_requests WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return 0, fmt.Errorf("delete course request: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("decline rows affected: %w", err)
	}
	return deleted, nil
}

// DeleteEnrollment removes an enrollment row, reporting how many rows
// were deleted. Zero rows is a benign no-op for the caller.
func (r *RegistrationRepository) DeleteEnrollment(ctx context.Context, studentID, courseID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_enrollments WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return 0, fmt.Errorf("delete enrollment: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("drop rows affected: %w", err)
	}
	return deleted, nil
}

// ListCoursesForStudent returns only the courses the student has touched,
// each annotated with status and action timestamp.
func (r *RegistrationRepository) ListCoursesForStudent(ctx context.Context, studentID string) ([]models.CourseWithStatus, error) {
	const query = `SELECT c.id, c.name, c.hours, c.type, c.building, c.instructor_id, c.created_at, c.updated_at,
        CASE WHEN e.student_id IS NOT NULL THEN 'ENROLLED' ELSE 'REQUESTED' END AS status,
        COALESCE(e.created_at, r.created_at) AS action_at
        FROM courses c
        LEFT JOIN course_enrollments e ON e.course_id = c.id AND e.student_id = $1
        LEFT JOIN course_requests r ON r.course_id = c.id AND r.student_id = $1
        WHERE e.student_id IS NOT NULL OR r.student_id IS NOT NULL
        ORDER BY c.id ASC`
	var courses []models.CourseWithStatus
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// ListRoster returns every student with a request or enrollment against a
// course. The pairwise invariant keeps each student to a single row.
func (r *RegistrationRepository) ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT u.id AS student_id, u.username, u.email, u.first_name, u.last_name, t.status, t.action_at
        FROM (SELECT student_id, 'ENROLLED' AS status, created_at AS action_at FROM course_enrollments WHERE course_id = $1
              UNION ALL
              SELECT student_id, 'REQUESTED' AS status, created_at AS action_at FROM course_requests WHERE course_id = $2) t
        INNER JOIN users u ON u.id = t.student_id
        ORDER BY u.id ASC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, courseID, courseID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return entries, nil
}
