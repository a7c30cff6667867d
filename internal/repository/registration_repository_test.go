package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crs-api/internal/models"
)

func newRegistrationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRegistrationStatusFor(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	rows := sqlmock.NewRows([]string{"status"}).AddRow("REQUESTED")
	mock.ExpectQuery("SELECT CASE").
		WithArgs("stu-1", "crs-1").
		WillReturnRows(rows)

	status, err := repo.StatusFor(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRequested, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationCreateRequest(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec("INSERT INTO course_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRequest(context.Background(), &models.CourseRequest{StudentID: "stu-1", CourseID: "crs-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationApprove(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	enrolledAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_requests WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "crs-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO course_enrollments").
		WithArgs("stu-1", "crs-1", enrolledAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Approve(context.Background(), "stu-1", "crs-1", enrolledAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationApproveNoPendingRequest(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_requests WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "crs-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), "stu-1", "crs-1", time.Now().UTC())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationDeleteRequestReportsRows(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_requests WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "crs-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteRequest(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationDeleteEnrollment(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "crs-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.DeleteEnrollment(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationListCoursesForStudent(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "hours", "type", "building", "instructor_id", "created_at", "updated_at", "status", "action_at"}).
		AddRow("crs-1", "Algorithms", 40, "GROUND", "B1", "ins-1", now, now, "ENROLLED", now).
		AddRow("crs-2", "Databases", 30, "ONLINE", "B2", "ins-1", now, now, "REQUESTED", now)
	mock.ExpectQuery("SELECT c.id, c.name, c.hours").
		WithArgs("stu-1").
		WillReturnRows(rows)

	courses, err := repo.ListCoursesForStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, models.StatusEnrolled, courses[0].Status)
	assert.Equal(t, models.StatusRequested, courses[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationListRoster(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"student_id", "username", "email", "first_name", "last_name", "status", "action_at"}).
		AddRow("stu-1", "alice", "alice@example.com", "Alice", "A", "ENROLLED", now).
		AddRow("stu-2", "bob", "bob@example.com", "Bob", "B", "REQUESTED", now)
	mock.ExpectQuery("SELECT u.id AS student_id").
		WithArgs("crs-1", "crs-1").
		WillReturnRows(rows)

	entries, err := repo.ListRoster(context.Background(), "crs-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, models.StatusRequested, entries[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
