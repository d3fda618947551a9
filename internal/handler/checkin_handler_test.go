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

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/middleware"
	"github.com/markazapp/markaz-admin-api/internal/models"
	"github.com/markazapp/markaz-admin-api/internal/service"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

type checkinStoreMock struct {
	location *models.CheckinLocation
	created  []models.TeacherCheckin
}

func (m *checkinStoreMock) ActiveLocation(ctx context.Context) (*models.CheckinLocation, error) {
	if m.location == nil {
		return nil, sql.ErrNoRows
	}
	return m.location, nil
}

func (m *checkinStoreMock) Create(ctx context.Context, checkin *models.TeacherCheckin) error {
	checkin.ID = uuid.NewString()
	m.created = append(m.created, *checkin)
	return nil
}

func (m *checkinStoreMock) CheckOut(ctx context.Context, id, teacherID string, at time.Time) error {
	return sql.ErrNoRows
}

func (m *checkinStoreMock) ListForTeacher(ctx context.Context, teacherID string, limit int) ([]models.TeacherCheckin, error) {
	return m.created, nil
}

type accessCheckerMock struct {
	allowed bool
}

func (m *accessCheckerMock) HasClassAccess(ctx context.Context, teacherID, classID string) (bool, error) {
	return m.allowed, nil
}

func newCheckinHandlerFixture(store *checkinStoreMock) (*CheckinHandler, *models.JWTClaims) {
	svc := service.NewCheckinService(store, &accessCheckerMock{allowed: true}, nil, nil, nil, 200)
	teacher := &models.JWTClaims{UserID: uuid.NewString(), Role: models.RoleTeacher}
	return NewCheckinHandler(svc), teacher
}

func checkinContext(t *testing.T, method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
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
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestCheckinHandlerCreated(t *testing.T) {
	store := &checkinStoreMock{location: &models.CheckinLocation{
		ID:           uuid.NewString(),
		Latitude:     45.4215,
		Longitude:    -75.6972,
		RadiusMeters: 200,
		Active:       true,
	}}
	handler, teacher := newCheckinHandlerFixture(store)

	c, w := checkinContext(t, http.MethodPost, "/checkins", dto.CheckInRequest{
		ClassID:   uuid.NewString(),
		Latitude:  45.4215,
		Longitude: -75.6972,
	}, teacher)

	handler.CheckIn(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.created, 1)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
}

func TestCheckinHandlerOutOfRange(t *testing.T) {
	store := &checkinStoreMock{location: &models.CheckinLocation{
		ID:           uuid.NewString(),
		Latitude:     45.4215,
		Longitude:    -75.6972,
		RadiusMeters: 200,
		Active:       true,
	}}
	handler, teacher := newCheckinHandlerFixture(store)

	c, w := checkinContext(t, http.MethodPost, "/checkins", dto.CheckInRequest{
		ClassID:   uuid.NewString(),
		Latitude:  45.5,
		Longitude: -75.6972,
	}, teacher)

	handler.CheckIn(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.created)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Contains(t, envelope.Error.Details, "distance_meters")
}

func TestCheckinHandlerInvalidBody(t *testing.T) {
	handler, teacher := newCheckinHandlerFixture(&checkinStoreMock{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/checkins", bytes.NewBufferString(`{"class_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, teacher)

	handler.CheckIn(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckinHandlerUnauthenticated(t *testing.T) {
	handler, _ := newCheckinHandlerFixture(&checkinStoreMock{})

	c, w := checkinContext(t, http.MethodPost, "/checkins", dto.CheckInRequest{
		ClassID:   uuid.NewString(),
		Latitude:  45.4215,
		Longitude: -75.6972,
	}, nil)

	handler.CheckIn(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
