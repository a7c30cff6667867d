package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

type registrationRepository interface {
	StatusFor(ctx context.Context, studentID, courseID string) (models.RegistrationStatus, error)
	CreateRequest(ctx context.Context, request *models.CourseRequest) error
	Approve(ctx context.Context, studentID, courseID string, enrolledAt time.Time) error
	DeleteRequest(ctx context.Context, studentID, courseID string) (int64, error)
	DeleteEnrollment(ctx context.Context, studentID, courseID string) (int64, error)
	ListCoursesForStudent(ctx context.Context, studentID string) ([]models.CourseWithStatus, error)
	ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type courseProvider interface {
	Get(ctx context.Context, id string) (*models.Course, error)
	Courses(ctx context.Context) ([]models.Course, error)
}

// DecisionRequest identifies the student-course pair an instructor is
// deciding on.
type DecisionRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	CourseID  string `json:"course_id" binding:"required"`
}

// RegistrationService implements the enrollment workflow: students
// request, instructors approve or decline, students drop.
type RegistrationService struct {
	repo    registrationRepository
	courses courseProvider
	audit   auditWriter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(repo registrationRepository, courses courseProvider, audit auditWriter, metrics *MetricsService, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{repo: repo, courses: courses, audit: audit, metrics: metrics, logger: logger}
}

// Request records a pending enrollment request. A student may hold at
// most one request or enrollment per course, so any status other than
// NONE rejects the request.
func (s *RegistrationService) Request(ctx context.Context, studentID, courseID string, meta models.RequestMeta) error {
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return err
	}

	status, err := s.repo.StatusFor(ctx, studentID, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive registration status")
	}
	if status != models.StatusNone {
		return appErrors.Clone(appErrors.ErrAlreadyRegistered, "course already requested or enrolled")
	}

	if err := s.repo.CreateRequest(ctx, &models.CourseRequest{StudentID: studentID, CourseID: courseID}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment request")
	}

	s.recordAudit(ctx, studentID, models.AuditActionEnrollRequest, studentID, courseID, meta)
	return nil
}

// Approve converts a pending request into an enrollment. Only the
// instructor owning the course may approve, and the request must still
// exist.
func (s *RegistrationService) Approve(ctx context.Context, instructorID string, req DecisionRequest, meta models.RequestMeta) error {
	if err := s.authorizeDecision(ctx, instructorID, req.CourseID); err != nil {
		return err
	}

	if err := s.repo.Approve(ctx, req.StudentID, req.CourseID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNoPendingRequest, "no pending request for this student and course")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve enrollment request")
	}

	s.recordAudit(ctx, instructorID, models.AuditActionEnrollApprove, req.StudentID, req.CourseID, meta)
	return nil
}

// Decline removes a pending request without creating an enrollment. A
// missing request is reported as success; the miss is logged so stale
// decision lists stay visible to operators.
func (s *RegistrationService) Decline(ctx context.Context, instructorID string, req DecisionRequest, meta models.RequestMeta) error {
	if err := s.authorizeDecision(ctx, instructorID, req.CourseID); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteRequest(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decline enrollment request")
	}
	if deleted == 0 {
		s.logger.Warn("decline matched no pending request",
			zap.String("student_id", req.StudentID),
			zap.String("course_id", req.CourseID))
		return nil
	}

	s.recordAudit(ctx, instructorID, models.AuditActionEnrollDecline, req.StudentID, req.CourseID, meta)
	return nil
}

// Drop removes the student's enrollment for a course. Dropping a course
// the student is not enrolled in is a no-op.
func (s *RegistrationService) Drop(ctx context.Context, studentID, courseID string, meta models.RequestMeta) error {
	deleted, err := s.repo.DeleteEnrollment(ctx, studentID, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	if deleted == 0 {
		return nil
	}

	s.recordAudit(ctx, studentID, models.AuditActionEnrollDrop, studentID, courseID, meta)
	return nil
}

// Catalog returns every course annotated with the student's status. The
// full course list comes from the catalog provider and the student's
// touched pairs are merged over it in memory, so untouched courses show
// as NONE.
func (s *RegistrationService) Catalog(ctx context.Context, studentID string) ([]models.CourseWithStatus, error) {
	all, err := s.courses.Courses(ctx)
	if err != nil {
		return nil, err
	}

	touched, err := s.listStudentCourses(ctx, studentID)
	if err != nil {
		return nil, err
	}

	byCourse := make(map[string]models.CourseWithStatus, len(touched))
	for _, entry := range touched {
		byCourse[entry.ID] = entry
	}

	catalog := make([]models.CourseWithStatus, 0, len(all))
	for _, course := range all {
		if entry, ok := byCourse[course.ID]; ok {
			catalog = append(catalog, entry)
			continue
		}
		catalog = append(catalog, models.CourseWithStatus{Course: course, Status: models.StatusNone})
	}
	return catalog, nil
}

// MyCourses returns only the courses the student has requested or is
// enrolled in.
func (s *RegistrationService) MyCourses(ctx context.Context, studentID string) ([]models.CourseWithStatus, error) {
	return s.listStudentCourses(ctx, studentID)
}

func (s *RegistrationService) listStudentCourses(ctx context.Context, studentID string) ([]models.CourseWithStatus, error) {
	start := time.Now()
	courses, err := s.repo.ListCoursesForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student courses")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("registrations_student_courses", time.Since(start))
	}
	return courses, nil
}

// Roster returns the pending and enrolled students for a course owned
// by the given instructor.
func (s *RegistrationService) Roster(ctx context.Context, instructorID, courseID string) ([]models.RosterEntry, error) {
	if err := s.authorizeDecision(ctx, instructorID, courseID); err != nil {
		return nil, err
	}

	start := time.Now()
	entries, err := s.repo.ListRoster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("registrations_roster", time.Since(start))
	}
	return entries, nil
}

func (s *RegistrationService) authorizeDecision(ctx context.Context, instructorID, courseID string) error {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if course.InstructorID != instructorID {
		return appErrors.Clone(appErrors.ErrForbidden, "not the course owner")
	}
	return nil
}

func (s *RegistrationService) recordAudit(ctx context.Context, actorID, action, studentID, courseID string, meta models.RequestMeta) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"student_id": studentID, "course_id": courseID})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "registrations",
		ResourceID: &courseID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record registration audit log", zap.Error(err))
	}
}
