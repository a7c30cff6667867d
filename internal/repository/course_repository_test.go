package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crs-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseColumns() []string {
	return []string{"id", "name", "hours", "type", "building", "instructor_id", "created_at", "updated_at"}
}

func TestCourseFindByID(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(courseColumns()).
		AddRow("crs-1", "Algorithms", 40, "GROUND", "B1", "ins-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, hours, type, building, instructor_id, created_at, updated_at FROM courses WHERE id = $1 LIMIT 1")).
		WithArgs("crs-1").
		WillReturnRows(rows)

	course, err := repo.FindByID(context.Background(), "crs-1")
	require.NoError(t, err)
	assert.Equal(t, models.CourseTypeGround, course.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Name: "Databases", Hours: 30, Type: models.CourseTypeOnline, Building: "B2", InstructorID: "ins-1"}
	err := repo.Create(context.Background(), course)
	require.NoError(t, err)
	assert.NotEmpty(t, course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseUpdate(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET name").WillReturnResult(sqlmock.NewResult(0, 1))

	course := &models.Course{ID: "crs-1", Name: "Databases II", Hours: 35, Type: models.CourseTypeOnline, Building: "B3"}
	err := repo.Update(context.Background(), course)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseListByInstructor(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(courseColumns()).
		AddRow("crs-1", "Algorithms", 40, "GROUND", "B1", "ins-1", now, now).
		AddRow("crs-2", "Databases", 30, "ONLINE", "B2", "ins-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, hours, type, building, instructor_id, created_at, updated_at FROM courses WHERE instructor_id = $1 ORDER BY id ASC")).
		WithArgs("ins-1").
		WillReturnRows(rows)

	courses, err := repo.ListByInstructor(context.Background(), "ins-1")
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseListAll(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(courseColumns()).
		AddRow("crs-1", "Algorithms", 40, "GROUND", "B1", "ins-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, hours, type, building, instructor_id, created_at, updated_at FROM courses ORDER BY id ASC")).
		WillReturnRows(rows)

	courses, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
