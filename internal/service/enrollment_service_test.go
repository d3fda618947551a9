package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type mockBatchRepo struct {
	batches     map[string]models.Batch
	memberships map[string]string
}

func newMockBatchRepo() *mockBatchRepo {
	return &mockBatchRepo{
		batches:     make(map[string]models.Batch),
		memberships: make(map[string]string),
	}
}

func (m *mockBatchRepo) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if batch, ok := m.batches[id]; ok {
		return &batch, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBatchRepo) List(ctx context.Context, program models.Program) ([]models.BatchDetail, error) {
	var details []models.BatchDetail
	for _, batch := range m.batches {
		if program != "" && batch.Program != program {
			continue
		}
		details = append(details, models.BatchDetail{Batch: batch})
	}
	return details, nil
}

func (m *mockBatchRepo) AssignProfile(ctx context.Context, profileID, batchID string) error {
	if _, ok := m.memberships[profileID]; !ok {
		return sql.ErrNoRows
	}
	m.memberships[profileID] = batchID
	return nil
}

func (m *mockBatchRepo) TransferProfile(ctx context.Context, profileID, fromBatchID, toBatchID string) error {
	current, ok := m.memberships[profileID]
	if !ok || current != fromBatchID {
		return sql.ErrNoRows
	}
	m.memberships[profileID] = toBatchID
	return nil
}

func newEnrollmentFixture() (*EnrollmentService, *mockBatchRepo, string) {
	repo := newMockBatchRepo()
	batchID := uuid.NewString()
	repo.batches[batchID] = models.Batch{ID: batchID, Program: models.ProgramMahad, Name: "Batch A", Active: true}
	return NewEnrollmentService(repo, nil, nil, nil), repo, batchID
}

func TestAssignToBatchCollectsFailures(t *testing.T) {
	svc, repo, batchID := newEnrollmentFixture()

	good1 := uuid.NewString()
	good2 := uuid.NewString()
	bad := uuid.NewString()
	repo.memberships[good1] = ""
	repo.memberships[good2] = ""

	result, err := svc.AssignToBatch(context.Background(), dto.AssignToBatchRequest{
		BatchID:    batchID,
		ProfileIDs: []string{good1, bad, good2},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.AssignedCount)
	assert.Equal(t, []string{bad}, result.FailedAssignments)
	assert.Equal(t, batchID, repo.memberships[good1])
	assert.Equal(t, batchID, repo.memberships[good2])
}

func TestAssignToBatchDedupesProfiles(t *testing.T) {
	svc, repo, batchID := newEnrollmentFixture()
	profileID := uuid.NewString()
	repo.memberships[profileID] = ""

	result, err := svc.AssignToBatch(context.Background(), dto.AssignToBatchRequest{
		BatchID:    batchID,
		ProfileIDs: []string{profileID, profileID, profileID},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AssignedCount)
}

func TestAssignToBatchMissingBatch(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.AssignToBatch(context.Background(), dto.AssignToBatchRequest{
		BatchID:    uuid.NewString(),
		ProfileIDs: []string{uuid.NewString()},
	}, nil)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAssignToBatchInactiveBatch(t *testing.T) {
	svc, repo, batchID := newEnrollmentFixture()
	batch := repo.batches[batchID]
	batch.Active = false
	repo.batches[batchID] = batch

	_, err := svc.AssignToBatch(context.Background(), dto.AssignToBatchRequest{
		BatchID:    batchID,
		ProfileIDs: []string{uuid.NewString()},
	}, nil)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestTransferBatchSourceMismatchIsFailureNotError(t *testing.T) {
	svc, repo, fromID := newEnrollmentFixture()
	toID := uuid.NewString()
	repo.batches[toID] = models.Batch{ID: toID, Program: models.ProgramMahad, Name: "Batch B", Active: true}

	inSource := uuid.NewString()
	elsewhere := uuid.NewString()
	repo.memberships[inSource] = fromID
	repo.memberships[elsewhere] = toID

	result, err := svc.TransferBatch(context.Background(), dto.TransferBatchRequest{
		FromBatchID: fromID,
		ToBatchID:   toID,
		ProfileIDs:  []string{inSource, elsewhere},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.AssignedCount)
	assert.Equal(t, []string{elsewhere}, result.FailedAssignments)
	assert.Equal(t, toID, repo.memberships[inSource])
}

func TestTransferBatchRejectsSameBatch(t *testing.T) {
	svc, repo, batchID := newEnrollmentFixture()
	profileID := uuid.NewString()
	repo.memberships[profileID] = batchID

	_, err := svc.TransferBatch(context.Background(), dto.TransferBatchRequest{
		FromBatchID: batchID,
		ToBatchID:   batchID,
		ProfileIDs:  []string{profileID},
	}, nil)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestListBatchesRejectsUnknownProgram(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.ListBatches(context.Background(), models.Program("EVENING"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
