package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/middleware"
	"github.com/markazapp/markaz-admin-api/internal/models"
	"github.com/markazapp/markaz-admin-api/internal/service"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

type attendanceStoreMock struct {
	sessions map[string]models.AttendanceSession
	records  map[string][]models.AttendanceRecord
}

func newAttendanceStoreMock() *attendanceStoreMock {
	return &attendanceStoreMock{
		sessions: make(map[string]models.AttendanceSession),
		records:  make(map[string][]models.AttendanceRecord),
	}
}

func (m *attendanceStoreMock) CreateSession(ctx context.Context, session *models.AttendanceSession) error {
	session.ID = uuid.NewString()
	m.sessions[session.ID] = *session
	return nil
}

func (m *attendanceStoreMock) GetSession(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if session, ok := m.sessions[id]; ok {
		return &session, nil
	}
	return nil, sql.ErrNoRows
}

func (m *attendanceStoreMock) ListSessions(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	var items []models.AttendanceSessionDetail
	for _, session := range m.sessions {
		items = append(items, models.AttendanceSessionDetail{AttendanceSession: session})
	}
	return items, len(items), nil
}

func (m *attendanceStoreMock) CloseSession(ctx context.Context, id string, closedAt time.Time) error {
	session, ok := m.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	session.Closed = true
	m.sessions[id] = session
	return nil
}

func (m *attendanceStoreMock) DeleteSession(ctx context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.sessions, id)
	return nil
}

func (m *attendanceStoreMock) UpsertRecords(ctx context.Context, sessionID string, records []models.AttendanceRecord, now time.Time) error {
	m.records[sessionID] = records
	return nil
}

func (m *attendanceStoreMock) SessionRoster(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	var roster []models.AttendanceRecordDetail
	for _, record := range m.records[sessionID] {
		roster = append(roster, models.AttendanceRecordDetail{AttendanceRecord: record})
	}
	return roster, nil
}

func (m *attendanceStoreMock) ClassSummary(ctx context.Context, classID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	return &models.AttendanceSummary{}, nil
}

type classStoreMock struct {
	class       models.Class
	assignments []models.TeacherAssignmentDetail
}

func (m *classStoreMock) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if id != m.class.ID {
		return nil, sql.ErrNoRows
	}
	return &m.class, nil
}

func (m *classStoreMock) ActiveAssignments(ctx context.Context, classID string) ([]models.TeacherAssignmentDetail, error) {
	return m.assignments, nil
}

func (m *classStoreMock) HasClassAccess(ctx context.Context, teacherID, classID string) (bool, error) {
	for _, assignment := range m.assignments {
		if assignment.TeacherID == teacherID {
			return true, nil
		}
	}
	return false, nil
}

func newAttendanceHandlerFixture() (*AttendanceHandler, *attendanceStoreMock, string) {
	classID := uuid.NewString()
	store := newAttendanceStoreMock()
	classes := &classStoreMock{
		class: models.Class{ID: classID, Program: models.ProgramDugsi, Name: "Level 3", Active: true},
		assignments: []models.TeacherAssignmentDetail{
			{TeacherAssignment: models.TeacherAssignment{TeacherID: uuid.NewString(), ClassID: classID}},
		},
	}
	svc := service.NewAttendanceService(store, classes, nil, nil, nil)
	return NewAttendanceHandler(svc, nil), store, classID
}

func attendanceContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	return c, w
}

func TestAttendanceHandlerCreateSession(t *testing.T) {
	handler, store, classID := newAttendanceHandlerFixture()

	c, w := attendanceContext(t, http.MethodPost, "/attendance/sessions", service.CreateSessionRequest{
		ClassID: classID,
		Date:    "2026-03-07",
	})

	handler.CreateSession(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.sessions, 1)

	var envelope struct {
		Success bool                     `json:"success"`
		Data    service.SessionWithState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, classID, envelope.Data.ClassID)
}

func TestAttendanceHandlerCreateSessionWeekday(t *testing.T) {
	handler, store, classID := newAttendanceHandlerFixture()

	c, w := attendanceContext(t, http.MethodPost, "/attendance/sessions", service.CreateSessionRequest{
		ClassID: classID,
		Date:    "2026-03-04",
	})

	handler.CreateSession(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.sessions)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NON_WEEKEND_DATE", envelope.Error.Code)
}

func TestAttendanceHandlerMark(t *testing.T) {
	handler, store, classID := newAttendanceHandlerFixture()
	sessionID := uuid.NewString()
	store.sessions[sessionID] = models.AttendanceSession{
		ID:      sessionID,
		ClassID: classID,
		Date:    time.Now().UTC().Add(24 * time.Hour).Truncate(24 * time.Hour),
	}

	c, w := attendanceContext(t, http.MethodPut, "/attendance/sessions/"+sessionID+"/records", service.MarkAttendanceRequest{
		Records: []service.MarkAttendanceEntry{
			{ProfileID: uuid.NewString(), Status: "PRESENT"},
		},
	})
	c.Params = gin.Params{{Key: "id", Value: sessionID}}

	handler.Mark(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.records[sessionID], 1)
}

func TestAttendanceHandlerMarkMissingSession(t *testing.T) {
	handler, _, _ := newAttendanceHandlerFixture()

	c, w := attendanceContext(t, http.MethodPut, "/attendance/sessions/ghost/records", service.MarkAttendanceRequest{
		Records: []service.MarkAttendanceEntry{
			{ProfileID: uuid.NewString(), Status: "PRESENT"},
		},
	})
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.Mark(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceHandlerCloseTwice(t *testing.T) {
	handler, store, classID := newAttendanceHandlerFixture()
	sessionID := uuid.NewString()
	store.sessions[sessionID] = models.AttendanceSession{
		ID:      sessionID,
		ClassID: classID,
		Date:    time.Now().UTC().Truncate(24 * time.Hour),
	}

	c, w := attendanceContext(t, http.MethodPost, "/attendance/sessions/"+sessionID+"/close", nil)
	c.Params = gin.Params{{Key: "id", Value: sessionID}}
	handler.Close(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = attendanceContext(t, http.MethodPost, "/attendance/sessions/"+sessionID+"/close", nil)
	c.Params = gin.Params{{Key: "id", Value: sessionID}}
	handler.Close(c)
	require.Equal(t, http.StatusConflict, w.Code)
}
