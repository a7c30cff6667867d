package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
	"github.com/noah-isme/crs-api/pkg/export"
)

type rosterProvider interface {
	Roster(ctx context.Context, instructorID, courseID string) ([]models.RosterEntry, error)
}

// ExportDocument bundles rendered bytes with the response metadata the
// handler needs to serve a download.
type ExportDocument struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders course rosters into downloadable documents.
type ExportService struct {
	registrations rosterProvider
	courses       courseProvider
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	logger        *zap.Logger
	enabled       bool
}

// NewExportService constructs ExportService.
func NewExportService(registrations rosterProvider, courses courseProvider, logger *zap.Logger, enabled bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		registrations: registrations,
		courses:       courses,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		logger:        logger,
		enabled:       enabled,
	}
}

// RenderRoster produces the roster for a course in the requested format.
// Ownership is enforced by the roster provider.
func (s *ExportService) RenderRoster(ctx context.Context, instructorID, courseID, format string) (*ExportDocument, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "roster export is disabled")
	}

	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	entries, err := s.registrations.Roster(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Headers: []string{"Student ID", "Username", "Email", "First Name", "Last Name", "Status", "Since"},
		Rows:    make([][]string, 0, len(entries)),
	}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			entry.StudentID,
			entry.Username,
			entry.Email,
			entry.FirstName,
			entry.LastName,
			string(entry.Status),
			entry.ActionAt.UTC().Format(time.RFC3339),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch strings.ToLower(format) {
	case "csv", "":
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv roster")
		}
		return &ExportDocument{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("roster_%s_%s.csv", sanitizeFilename(course.Name), stamp),
		}, nil
	case "pdf":
		content, err := s.pdf.Render(table, fmt.Sprintf("Roster: %s", course.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf roster")
		}
		return &ExportDocument{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("roster_%s_%s.pdf", sanitizeFilename(course.Name), stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		default:
			return -1
		}
	}, name)
	if cleaned == "" {
		return "course"
	}
	return strings.ToLower(cleaned)
}
