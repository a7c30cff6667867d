package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

const catalogCacheKey = "catalog:courses"

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
	ListAll(ctx context.Context) ([]models.Course, error)
}

type instructorReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Name     string            `json:"name" validate:"required"`
	Hours    int               `json:"hours" validate:"required,gt=0"`
	Type     models.CourseType `json:"type" validate:"required,oneof=ONLINE GROUND"`
	Building string            `json:"building" validate:"required"`
}

// UpdateCourseRequest describes course update payload. The owning
// instructor is never part of it.
type UpdateCourseRequest struct {
	Name     string            `json:"name" validate:"required"`
	Hours    int               `json:"hours" validate:"required,gt=0"`
	Type     models.CourseType `json:"type" validate:"required,oneof=ONLINE GROUND"`
	Building string            `json:"building" validate:"required"`
}

// CourseService orchestrates course publication workflows.
type CourseService struct {
	repo      courseRepository
	users     instructorReader
	audit     auditWriter
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, users instructorReader, audit auditWriter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, users: users, audit: audit, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create publishes a new course owned by the given instructor.
func (s *CourseService) Create(ctx context.Context, instructorID string, req CreateCourseRequest, meta models.RequestMeta) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	owner, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if owner.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course owner must be an instructor")
	}

	course := &models.Course{
		Name:         req.Name,
		Hours:        req.Hours,
		Type:         req.Type,
		Building:     req.Building,
		InstructorID: instructorID,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateCatalog(ctx)
	s.recordAudit(ctx, instructorID, models.AuditActionCourseCreate, course, meta)

	return course, nil
}

// Update modifies a course. Only the owning instructor may update it.
func (s *CourseService) Update(ctx context.Context, courseID, instructorID string, req UpdateCourseRequest, meta models.RequestMeta) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.InstructorID != instructorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the course owner")
	}

	course.Name = req.Name
	course.Hours = req.Hours
	course.Type = req.Type
	course.Building = req.Building

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateCatalog(ctx)
	s.recordAudit(ctx, instructorID, models.AuditActionCourseUpdate, course, meta)

	return course, nil
}

// ListByInstructor returns the courses owned by an instructor, with no
// status annotation.
func (s *CourseService) ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	start := time.Now()
	courses, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor courses")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("courses_by_instructor", time.Since(start))
	}
	return courses, nil
}

// Courses returns the full course catalog, served from cache when enabled.
func (s *CourseService) Courses(ctx context.Context) ([]models.Course, error) {
	var cached []models.Course
	if hit, err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	start := time.Now()
	courses, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("courses_list_all", time.Since(start))
	}

	if err := s.cache.Set(ctx, catalogCacheKey, courses, 0); err != nil {
		s.logger.Warn("failed to cache course catalog", zap.Error(err))
	}

	return courses, nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate course catalog cache", zap.Error(err))
	}
}

func (s *CourseService) recordAudit(ctx context.Context, actorID, action string, course *models.Course, meta models.RequestMeta) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"id": course.ID, "name": course.Name, "type": course.Type})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "courses",
		ResourceID: &course.ID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record course audit log", zap.Error(err))
	}
}
