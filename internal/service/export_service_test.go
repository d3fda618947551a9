package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type exportStudentsMock struct {
	students []models.Student
}

func (m *exportStudentsMock) ListAll(ctx context.Context, program models.Program) ([]models.Student, error) {
	return m.students, nil
}

type exportRosterMock struct {
	session *models.AttendanceSession
	roster  []models.AttendanceRecordDetail
}

func (m *exportRosterMock) GetSession(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if m.session == nil {
		return nil, sql.ErrNoRows
	}
	return m.session, nil
}

func (m *exportRosterMock) SessionRoster(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	return m.roster, nil
}

func TestStudentRosterCSV(t *testing.T) {
	email := "amina@example.com"
	students := &exportStudentsMock{students: []models.Student{
		{FirstName: "Amina", LastName: "Hassan", Program: models.ProgramDugsi, Email: &email, Status: "ACTIVE"},
	}}
	svc := NewExportService(students, &exportRosterMock{}, nil)

	file, err := svc.StudentRoster(context.Background(), models.ProgramDugsi, ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "students_dugsi.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	body := string(file.Payload)
	assert.True(t, strings.HasPrefix(body, "First Name,Last Name,Program,Email,Phone,Status"))
	assert.Contains(t, body, "Amina,Hassan,DUGSI,amina@example.com,,ACTIVE")
}

func TestStudentRosterDefaultsToCSV(t *testing.T) {
	svc := NewExportService(&exportStudentsMock{}, &exportRosterMock{}, nil)

	file, err := svc.StudentRoster(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "students.csv", file.Filename)
}

func TestStudentRosterUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&exportStudentsMock{}, &exportRosterMock{}, nil)

	_, err := svc.StudentRoster(context.Background(), "", ExportFormat("docx"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSessionRosterFilenameUsesSessionDate(t *testing.T) {
	lesson := "Surah Al-Mulk"
	attendance := &exportRosterMock{
		session: &models.AttendanceSession{
			ID:   "sess-1",
			Date: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		},
		roster: []models.AttendanceRecordDetail{
			{
				AttendanceRecord: models.AttendanceRecord{
					Status:          models.AttendanceStatusPresent,
					LessonCompleted: true,
					LessonName:      &lesson,
					MarkedAt:        time.Date(2026, 3, 7, 11, 0, 0, 0, time.UTC),
				},
				StudentName: "Amina Hassan",
			},
		},
	}
	svc := NewExportService(&exportStudentsMock{}, attendance, nil)

	file, err := svc.SessionRoster(context.Background(), "sess-1", ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "attendance_2026-03-07.csv", file.Filename)
	assert.Contains(t, string(file.Payload), "Amina Hassan,PRESENT,true,Surah Al-Mulk")
}

func TestSessionRosterMissingSession(t *testing.T) {
	svc := NewExportService(&exportStudentsMock{}, &exportRosterMock{}, nil)

	_, err := svc.SessionRoster(context.Background(), "ghost", ExportFormatCSV)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
