package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

// Monthly family rates in cents. The per-student rate drops as the family
// enrolls more students.
const (
	rateSingleStudentCents = 150_00
	rateTwoStudentsCents   = 120_00
	rateThreePlusCents     = 100_00
)

type billingStore interface {
	CountFamilyStudents(ctx context.Context, familyID string, program models.Program) (int, error)
	GetByFamily(ctx context.Context, familyID string) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
}

// BillingService derives family subscription rates from enrollment counts.
type BillingService struct {
	repo   billingStore
	audit  auditLogger
	logger *zap.Logger
}

// NewBillingService builds a BillingService.
func NewBillingService(repo billingStore, audit auditLogger, logger *zap.Logger) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{repo: repo, audit: audit, logger: logger}
}

// MonthlyRateCents returns the total monthly charge for a family with the
// given number of enrolled students.
func MonthlyRateCents(studentCount int) int64 {
	switch {
	case studentCount <= 0:
		return 0
	case studentCount == 1:
		return rateSingleStudentCents
	case studentCount == 2:
		return 2 * rateTwoStudentsCents
	default:
		return int64(studentCount) * rateThreePlusCents
	}
}

func planName(studentCount int) string {
	switch {
	case studentCount <= 1:
		return "SINGLE"
	case studentCount == 2:
		return "SIBLING"
	default:
		return "FAMILY"
	}
}

// GetSubscription returns the stored subscription for a family.
func (s *BillingService) GetSubscription(ctx context.Context, familyID string) (*models.Subscription, error) {
	if familyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "family id is required")
	}
	sub, err := s.repo.GetByFamily(ctx, familyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no subscription for this family")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	return sub, nil
}

// SyncFamilySubscription recomputes a family's plan and monthly rate from the
// current enrollment count and upserts the subscription row. A family with no
// active students is moved to CANCELED rather than deleted, preserving
// billing history.
func (s *BillingService) SyncFamilySubscription(ctx context.Context, familyID string, program models.Program, actor *models.JWTClaims) (*models.Subscription, error) {
	if familyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "family id is required")
	}
	if program != "" && !program.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program must be MAHAD or DUGSI")
	}

	count, err := s.repo.CountFamilyStudents(ctx, familyID, program)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count family students")
	}

	sub := &models.Subscription{
		FamilyID:         familyID,
		Plan:             planName(count),
		MonthlyRateCents: MonthlyRateCents(count),
		StudentCount:     count,
		Status:           models.SubscriptionActive,
	}
	if count == 0 {
		sub.Status = models.SubscriptionCanceled
	}

	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save subscription")
	}

	s.emitBillingAudit(ctx, actor, sub)
	s.logger.Info("family subscription synced",
		zap.String("familyId", familyID),
		zap.Int("studentCount", count),
		zap.Int64("monthlyRateCents", sub.MonthlyRateCents),
	)
	return sub, nil
}

func (s *BillingService) emitBillingAudit(ctx context.Context, actor *models.JWTClaims, sub *models.Subscription) {
	if s.audit == nil {
		return
	}
	var userID *string
	if actor != nil {
		userID = &actor.UserID
	}
	newValues := []byte(fmt.Sprintf(`{"plan":%q,"monthlyRateCents":%d,"studentCount":%d,"status":%q}`,
		sub.Plan, sub.MonthlyRateCents, sub.StudentCount, sub.Status))
	log := &models.AuditLog{
		UserID:     userID,
		Action:     models.AuditActionSubscriptionSync,
		Resource:   "subscription",
		ResourceID: &sub.FamilyID,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "billing-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record billing audit", zap.Error(err))
	}
}
