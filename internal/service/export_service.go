package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
	"github.com/markazapp/markaz-admin-api/pkg/export"
)

// ExportFormat enumerates supported roster export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

type exportStudentLister interface {
	ListAll(ctx context.Context, program models.Program) ([]models.Student, error)
}

type exportRosterReader interface {
	SessionRoster(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error)
	GetSession(ctx context.Context, id string) (*models.AttendanceSession, error)
}

// ExportService renders student and attendance rosters as downloadable files.
type ExportService struct {
	students   exportStudentLister
	attendance exportRosterReader
	csv        csvRenderer
	pdf        pdfRenderer
	xlsx       xlsxRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(students exportStudentLister, attendance exportRosterReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		students:   students,
		attendance: attendance,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		xlsx:       export.NewXLSXExporter(),
		logger:     logger,
	}
}

// StudentRoster renders the student listing for a program.
func (s *ExportService) StudentRoster(ctx context.Context, program models.Program, format ExportFormat) (*ExportFile, error) {
	if program != "" && !program.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program must be MAHAD or DUGSI")
	}

	students, err := s.students.ListAll(ctx, program)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	dataset := export.Dataset{
		Headers: []string{"First Name", "Last Name", "Program", "Email", "Phone", "Status"},
	}
	for _, student := range students {
		row := map[string]string{
			"First Name": student.FirstName,
			"Last Name":  student.LastName,
			"Program":    string(student.Program),
			"Status":     student.Status,
		}
		if student.Email != nil {
			row["Email"] = *student.Email
		}
		if student.Phone != nil {
			row["Phone"] = *student.Phone
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	name := "students"
	if program != "" {
		name = "students_" + strings.ToLower(string(program))
	}
	return s.render(dataset, name, "Student Roster", format)
}

// SessionRoster renders the attendance roster for one session.
func (s *ExportService) SessionRoster(ctx context.Context, sessionID string, format ExportFormat) (*ExportFile, error) {
	session, err := s.attendance.GetSession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	roster, err := s.attendance.SessionRoster(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Status", "Lesson Completed", "Lesson", "Notes", "Marked At"},
	}
	for _, record := range roster {
		row := map[string]string{
			"Student":          record.StudentName,
			"Status":           string(record.Status),
			"Lesson Completed": strconv.FormatBool(record.LessonCompleted),
			"Marked At":        record.MarkedAt.UTC().Format(time.RFC3339),
		}
		if record.LessonName != nil {
			row["Lesson"] = *record.LessonName
		}
		if record.Notes != nil {
			row["Notes"] = *record.Notes
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	name := "attendance_" + session.Date.UTC().Format("2006-01-02")
	return s.render(dataset, name, "Attendance Roster", format)
}

func (s *ExportService) render(dataset export.Dataset, name, title string, format ExportFormat) (*ExportFile, error) {
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV, "":
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
		format = ExportFormatCSV
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, title)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("%s.%s", name, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}
