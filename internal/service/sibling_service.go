package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type siblingStore interface {
	Link(ctx context.Context, personA, personB string, method models.SiblingDetectionMethod) (*models.SiblingRelationship, error)
	Unlink(ctx context.Context, personA, personB string) error
	ListForPerson(ctx context.Context, personID string) ([]models.SiblingRelationship, error)
	FamilyPersonIDs(ctx context.Context, familyID string) ([]string, error)
}

type personFinder interface {
	FindPeople(ctx context.Context, ids []string) ([]models.Person, error)
}

// SiblingService maintains the sibling relationship graph. Edges are
// unordered and stored canonically, so linking (a, b) and (b, a) is the same
// operation.
type SiblingService struct {
	repo   siblingStore
	people personFinder
	audit  auditLogger
	logger *zap.Logger
}

// NewSiblingService builds a SiblingService.
func NewSiblingService(repo siblingStore, people personFinder, audit auditLogger, logger *zap.Logger) *SiblingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiblingService{repo: repo, people: people, audit: audit, logger: logger}
}

// Link creates (or reactivates) a manual sibling edge between two people.
func (s *SiblingService) Link(ctx context.Context, personA, personB string, actor *models.JWTClaims) (*models.SiblingRelationship, error) {
	if personA == "" || personB == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "both person ids are required")
	}
	if personA == personB {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a person cannot be their own sibling")
	}

	people, err := s.people.FindPeople(ctx, []string{personA, personB})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load people")
	}
	if len(people) != 2 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or both people do not exist")
	}

	rel, err := s.repo.Link(ctx, personA, personB, models.SiblingDetectionManual)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link siblings")
	}

	s.emitSiblingAudit(ctx, actor, models.AuditActionSiblingLink, rel.ID)
	return rel, nil
}

// Unlink deactivates the edge between two people.
func (s *SiblingService) Unlink(ctx context.Context, personA, personB string, actor *models.JWTClaims) error {
	if personA == "" || personB == "" {
		return appErrors.Clone(appErrors.ErrValidation, "both person ids are required")
	}
	if personA == personB {
		return appErrors.Clone(appErrors.ErrValidation, "a person cannot be their own sibling")
	}

	if err := s.repo.Unlink(ctx, personA, personB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no active sibling link between these people")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlink siblings")
	}

	p1, p2 := models.CanonicalPair(personA, personB)
	s.emitSiblingAudit(ctx, actor, models.AuditActionSiblingUnlink, p1+":"+p2)
	return nil
}

// ListForPerson returns the active edges touching a person.
func (s *SiblingService) ListForPerson(ctx context.Context, personID string) ([]models.SiblingRelationship, error) {
	if personID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person id is required")
	}
	items, err := s.repo.ListForPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sibling links")
	}
	return items, nil
}

// AutoLinkFamily links every pair of people sharing a family grouping with an
// AUTOMATIC edge. Existing edges are reactivated, never duplicated; the
// return value counts edges touched.
func (s *SiblingService) AutoLinkFamily(ctx context.Context, familyID string, actor *models.JWTClaims) (int, error) {
	if familyID == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "family id is required")
	}

	ids, err := s.repo.FamilyPersonIDs(ctx, familyID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family members")
	}
	if len(ids) < 2 {
		return 0, nil
	}

	linked := 0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			rel, err := s.repo.Link(ctx, ids[i], ids[j], models.SiblingDetectionAutomatic)
			if err != nil {
				return linked, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to auto-link family")
			}
			linked++
			s.emitSiblingAudit(ctx, actor, models.AuditActionSiblingLink, rel.ID)
		}
	}

	s.logger.Info("family auto-linked",
		zap.String("familyId", familyID),
		zap.Int("edges", linked),
	)
	return linked, nil
}

func (s *SiblingService) emitSiblingAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string) {
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
		Resource:   "sibling_relationship",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "sibling-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record sibling audit", zap.Error(err))
	}
}
