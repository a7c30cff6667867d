package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/middleware"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/service"
)

type fakeRegistrationRepo struct {
	status         models.RegistrationStatus
	requests       []*models.CourseRequest
	enrollDeleted  int64
	studentCourses []models.CourseWithStatus
}

func (f *fakeRegistrationRepo) StatusFor(ctx context.Context, studentID, courseID string) (models.RegistrationStatus, error) {
	if f.status == "" {
		return models.StatusNone, nil
	}
	return f.status, nil
}

func (f *fakeRegistrationRepo) CreateRequest(ctx context.Context, request *models.CourseRequest) error {
	f.requests = append(f.requests, request)
	return nil
}

func (f *fakeRegistrationRepo) Approve(ctx context.Context, studentID, courseID string, enrolledAt time.Time) error {
	return nil
}

func (f *fakeRegistrationRepo) DeleteRequest(ctx context.Context, studentID, courseID string) (int64, error) {
	return 1, nil
}

func (f *fakeRegistrationRepo) DeleteEnrollment(ctx context.Context, studentID, courseID string) (int64, error) {
	return f.enrollDeleted, nil
}

func (f *fakeRegistrationRepo) ListCoursesForStudent(ctx context.Context, studentID string) ([]models.CourseWithStatus, error) {
	return f.studentCourses, nil
}

func (f *fakeRegistrationRepo) ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	return nil, nil
}

type fakeCourseProvider struct {
	course *models.Course
}

func (f *fakeCourseProvider) Get(ctx context.Context, id string) (*models.Course, error) {
	return f.course, nil
}

func (f *fakeCourseProvider) Courses(ctx context.Context) ([]models.Course, error) {
	return []models.Course{*f.course}, nil
}

type fakeAuditWriter struct{}

func (f *fakeAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func newRegistrationHandlerForTest(repo *fakeRegistrationRepo) *RegistrationHandler {
	courses := &fakeCourseProvider{course: &models.Course{ID: "crs-1", InstructorID: "ins-1"}}
	svc := service.NewRegistrationService(repo, courses, &fakeAuditWriter{}, nil, zap.NewNop())
	return NewRegistrationHandler(svc)
}

func TestRegistrationHandlerRequestCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRegistrationRepo{}
	handler := newRegistrationHandlerForTest(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations/requests", strings.NewReader(`{"course_id":"crs-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Request(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.requests, 1)
	assert.Equal(t, "stu-1", repo.requests[0].StudentID)
}

func TestRegistrationHandlerRequestDuplicateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRegistrationRepo{status: models.StatusRequested}
	handler := newRegistrationHandlerForTest(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations/requests", strings.NewReader(`{"course_id":"crs-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Request(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, repo.requests)
}

func TestRegistrationHandlerRequestMissingBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandlerForTest(&fakeRegistrationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations/requests", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Request(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationHandlerRequestUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandlerForTest(&fakeRegistrationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations/requests", strings.NewReader(`{"course_id":"crs-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Request(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegistrationHandlerDropNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandlerForTest(&fakeRegistrationRepo{enrollDeleted: 1})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/registrations/enrollments/crs-1", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "crs-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Drop(c)
	// Flush the buffered status: gin only writes headers to the underlying
	// recorder via the engine, which is bypassed when calling the handler directly.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRegistrationHandlerApproveOwnerOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandlerForTest(&fakeRegistrationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations/approvals", strings.NewReader(`{"student_id":"stu-1","course_id":"crs-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "ins-2", Role: models.RoleInstructor})

	handler.Approve(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
