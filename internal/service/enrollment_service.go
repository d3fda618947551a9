package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type batchStore interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	List(ctx context.Context, program models.Program) ([]models.BatchDetail, error)
	AssignProfile(ctx context.Context, profileID, batchID string) error
	TransferProfile(ctx context.Context, profileID, fromBatchID, toBatchID string) error
}

// EnrollmentService moves students into and between batches. Bulk operations
// are best-effort per profile: one bad id never sinks the rest.
type EnrollmentService struct {
	batches   batchStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService builds an EnrollmentService with sane defaults.
func NewEnrollmentService(batches batchStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{batches: batches, audit: audit, validator: validate, logger: logger}
}

// ListBatches returns batches with member counts for the given program.
func (s *EnrollmentService) ListBatches(ctx context.Context, program models.Program) ([]models.BatchDetail, error) {
	if program != "" && !program.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program must be MAHAD or DUGSI")
	}
	items, err := s.batches.List(ctx, program)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	return items, nil
}

// AssignToBatch places the requested profiles into the target batch. Profiles
// that cannot be assigned, because they do not exist or belong to another
// program, are collected in FailedAssignments while the rest proceed.
func (s *EnrollmentService) AssignToBatch(ctx context.Context, req dto.AssignToBatchRequest, actor *models.JWTClaims) (*models.BatchAssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	batch, err := s.loadActiveBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}

	result := &models.BatchAssignmentResult{FailedAssignments: []string{}}
	for _, profileID := range dedupe(req.ProfileIDs) {
		if err := s.batches.AssignProfile(ctx, profileID, batch.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				result.FailedAssignments = append(result.FailedAssignments, profileID)
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign profiles")
		}
		result.AssignedCount++
	}

	s.emitBatchAudit(ctx, actor, models.AuditActionBatchAssign, batch.ID, result)
	return result, nil
}

// TransferBatch moves the requested profiles from one batch to another. A
// profile not currently in the source batch counts as a failure, not an
// error.
func (s *EnrollmentService) TransferBatch(ctx context.Context, req dto.TransferBatchRequest, actor *models.JWTClaims) (*models.BatchAssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}

	if _, err := s.loadActiveBatch(ctx, req.FromBatchID); err != nil {
		return nil, err
	}
	target, err := s.loadActiveBatch(ctx, req.ToBatchID)
	if err != nil {
		return nil, err
	}

	result := &models.BatchAssignmentResult{FailedAssignments: []string{}}
	for _, profileID := range dedupe(req.ProfileIDs) {
		if err := s.batches.TransferProfile(ctx, profileID, req.FromBatchID, target.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				result.FailedAssignments = append(result.FailedAssignments, profileID)
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer profiles")
		}
		result.AssignedCount++
	}

	s.emitBatchAudit(ctx, actor, models.AuditActionBatchTransfer, target.ID, result)
	return result, nil
}

func (s *EnrollmentService) loadActiveBatch(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if !batch.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "batch is inactive")
	}
	return batch, nil
}

func (s *EnrollmentService) emitBatchAudit(ctx context.Context, actor *models.JWTClaims, action string, batchID string, result *models.BatchAssignmentResult) {
	if s.audit == nil {
		return
	}
	var userID *string
	if actor != nil {
		userID = &actor.UserID
	}
	log := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "batch",
		ResourceID: &batchID,
		IPAddress:  "system",
		UserAgent:  "enrollment-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record batch audit",
			zap.Error(err),
			zap.Int("assigned", result.AssignedCount),
			zap.Int("failed", len(result.FailedAssignments)),
		)
	}
}
