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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/middleware"
	"github.com/markazapp/markaz-admin-api/internal/models"
	"github.com/markazapp/markaz-admin-api/internal/service"
	"github.com/markazapp/markaz-admin-api/pkg/response"
)

type duplicateStoreMock struct {
	students []models.Student
	people   map[string]models.Person
	resolved bool
}

func (m *duplicateStoreMock) ListAll(ctx context.Context, program models.Program) ([]models.Student, error) {
	return m.students, nil
}

func (m *duplicateStoreMock) FindPerson(ctx context.Context, id string) (*models.Person, error) {
	if p, ok := m.people[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *duplicateStoreMock) FindPeople(ctx context.Context, ids []string) ([]models.Person, error) {
	var found []models.Person
	for _, id := range ids {
		if p, ok := m.people[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (m *duplicateStoreMock) ResolveDuplicates(ctx context.Context, keep *models.Person, deleteIDs []string) error {
	m.resolved = true
	return nil
}

func TestDuplicateHandlerDetect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	email := "family@example.com"
	now := time.Now().UTC()
	store := &duplicateStoreMock{students: []models.Student{
		{ProfileID: "pp-1", PersonID: "p1", Email: &email, CreatedAt: now.Add(-time.Hour), UpdatedAt: now},
		{ProfileID: "pp-2", PersonID: "p2", Email: &email, CreatedAt: now, UpdatedAt: now},
	}}
	handler := NewDuplicateHandler(service.NewDuplicateService(store, nil, nil, nil, 0), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/duplicates", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Detect(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool                    `json:"success"`
		Data    []models.DuplicateGroup `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "p2", envelope.Data[0].Keep.PersonID)
}

func TestDuplicateHandlerDetectRejectsBadProgram(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDuplicateHandler(service.NewDuplicateService(&duplicateStoreMock{}, nil, nil, nil, 0), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/duplicates?program=EVENING", nil)
	c.Request = req

	handler.Detect(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicateHandlerResolveMissingRecords(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &duplicateStoreMock{people: map[string]models.Person{}}
	handler := NewDuplicateHandler(service.NewDuplicateService(store, nil, nil, nil, 0), nil)

	payload, _ := json.Marshal(dto.ResolveDuplicatesRequest{
		KeepID:    "5f4c1d9e-3f3a-4f7a-9a4a-111111111111",
		DeleteIDs: []string{"5f4c1d9e-3f3a-4f7a-9a4a-222222222222"},
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/duplicates/resolve", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Resolve(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, store.resolved)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
}

func TestDuplicateHandlerResolveInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDuplicateHandler(service.NewDuplicateService(&duplicateStoreMock{}, nil, nil, nil, 0), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/duplicates/resolve", bytes.NewBufferString(`{"keep_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Resolve(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
