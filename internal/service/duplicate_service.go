package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

const duplicateResource = "duplicate"

type duplicateStudentStore interface {
	ListAll(ctx context.Context, program models.Program) ([]models.Student, error)
	FindPerson(ctx context.Context, id string) (*models.Person, error)
	FindPeople(ctx context.Context, ids []string) ([]models.Person, error)
	ResolveDuplicates(ctx context.Context, keep *models.Person, deleteIDs []string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// DuplicateService detects likely duplicate student records and collapses
// them on operator request.
type DuplicateService struct {
	repo         duplicateStudentStore
	audit        auditLogger
	validator    *validator.Validate
	logger       *zap.Logger
	recentWindow time.Duration
	now          func() time.Time
}

// NewDuplicateService builds a DuplicateService with sane defaults.
func NewDuplicateService(repo duplicateStudentStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, recentWindow time.Duration) *DuplicateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recentWindow <= 0 {
		recentWindow = 30 * 24 * time.Hour
	}
	return &DuplicateService{
		repo:         repo,
		audit:        audit,
		validator:    validate,
		logger:       logger,
		recentWindow: recentWindow,
		now:          time.Now,
	}
}

// normalizeEmail lowercases and strips all whitespace so casing and stray
// spaces never split a group.
func normalizeEmail(email string) string {
	return strings.Join(strings.Fields(strings.ToLower(email)), "")
}

// DetectGroups clusters student records by normalised email. Records without
// an email cannot be clustered safely and are skipped. Detection never
// mutates anything.
func (s *DuplicateService) DetectGroups(ctx context.Context, filter dto.DetectDuplicatesFilter) ([]models.DuplicateGroup, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid duplicates filter")
	}

	students, err := s.repo.ListAll(ctx, models.Program(filter.Program))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	buckets := make(map[string][]models.Student)
	for _, student := range students {
		if student.Email == nil {
			continue
		}
		key := normalizeEmail(*student.Email)
		if key == "" {
			continue
		}
		buckets[key] = append(buckets[key], student)
	}

	cutoff := s.now().UTC().Add(-s.recentWindow)
	groups := make([]models.DuplicateGroup, 0, len(buckets))
	for email, members := range buckets {
		if len(members) < 2 {
			continue
		}
		// Newest first; equal timestamps fall back to id so the keep
		// record is deterministic.
		sort.SliceStable(members, func(i, j int) bool {
			if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
				return members[i].CreatedAt.After(members[j].CreatedAt)
			}
			return members[i].PersonID > members[j].PersonID
		})

		group := models.DuplicateGroup{
			Email:      email,
			Count:      len(members),
			Keep:       members[0],
			Duplicates: members[1:],
		}
		for _, member := range members {
			if member.SiblingCount > 0 {
				group.HasSiblingGroup = true
			}
			if member.UpdatedAt.After(cutoff) {
				group.HasRecentActivity = true
			}
		}
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Email < groups[j].Email })
	return groups, nil
}

// Resolve merges duplicate person records into the keep record and deletes
// them. All preconditions are checked before any mutation; the merge and the
// deletions land in a single transaction or not at all.
func (s *DuplicateService) Resolve(ctx context.Context, req dto.ResolveDuplicatesRequest, actor *models.JWTClaims) (*dto.ResolveDuplicatesResult, error) {
	if len(req.DeleteIDs) == 0 {
		return nil, appErrors.ErrNoDuplicatesSelected
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolve payload")
	}

	deleteIDs := dedupe(req.DeleteIDs)
	for _, id := range deleteIDs {
		if id == req.KeepID {
			return nil, appErrors.ErrKeepInDeleteSet
		}
	}

	keep, err := s.repo.FindPerson(ctx, req.KeepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "keep record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load keep record")
	}

	candidates, err := s.repo.FindPeople(ctx, deleteIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load duplicate records")
	}
	if len(candidates) != len(deleteIDs) {
		found := make(map[string]struct{}, len(candidates))
		for _, person := range candidates {
			found[person.ID] = struct{}{}
		}
		var missing []string
		for _, id := range deleteIDs {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("duplicate records not found: %s", strings.Join(missing, ", ")))
	}

	before := *keep
	if req.MergeData {
		// Most recently created candidate wins a missing field, not
		// whichever order the caller happened to send ids in.
		sort.SliceStable(candidates, func(i, j int) bool {
			if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
				return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
			}
			return candidates[i].ID > candidates[j].ID
		})
		mergeMissingFields(keep, candidates)
	}

	if err := s.repo.ResolveDuplicates(ctx, keep, deleteIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more duplicate records no longer exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve duplicates")
	}

	s.emitAudit(ctx, actor, &before, keep, deleteIDs)
	return &dto.ResolveDuplicatesResult{
		KeepID:     req.KeepID,
		DeletedIDs: deleteIDs,
		Merged:     req.MergeData,
	}, nil
}

// mergeMissingFields copies the first non-empty candidate value into each
// field the keep record is missing. Populated fields are never overwritten.
func mergeMissingFields(keep *models.Person, candidates []models.Person) {
	for i := range candidates {
		candidate := &candidates[i]
		fillString(&keep.Email, candidate.Email)
		fillString(&keep.Phone, candidate.Phone)
		fillString(&keep.Address, candidate.Address)
		fillString(&keep.Gender, candidate.Gender)
		fillString(&keep.GuardianName, candidate.GuardianName)
		fillString(&keep.GuardianPhone, candidate.GuardianPhone)
		if keep.DateOfBirth == nil && candidate.DateOfBirth != nil {
			dob := *candidate.DateOfBirth
			keep.DateOfBirth = &dob
		}
	}
}

func fillString(dst **string, src *string) {
	if *dst != nil && strings.TrimSpace(**dst) != "" {
		return
	}
	if src == nil || strings.TrimSpace(*src) == "" {
		return
	}
	value := *src
	*dst = &value
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func (s *DuplicateService) emitAudit(ctx context.Context, actor *models.JWTClaims, before, after *models.Person, deletedIDs []string) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(before)
	newValues, _ := json.Marshal(map[string]interface{}{
		"keep":       after,
		"deletedIds": deletedIDs,
	})
	var userID *string
	if actor != nil {
		userID = &actor.UserID
	}
	log := &models.AuditLog{
		UserID:     userID,
		Action:     models.AuditActionDuplicateResolve,
		Resource:   duplicateResource,
		ResourceID: &after.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "duplicate-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record duplicate resolution audit", zap.Error(err))
	}
}
