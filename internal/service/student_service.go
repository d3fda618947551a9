package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindPerson(ctx context.Context, id string) (*models.Person, error)
}

type siblingLister interface {
	ListForPerson(ctx context.Context, personID string) ([]models.SiblingRelationship, error)
}

// StudentListRequest scopes a student listing.
type StudentListRequest struct {
	Program   string `form:"program" validate:"omitempty,oneof=MAHAD DUGSI"`
	BatchID   string `form:"batch_id" validate:"omitempty,uuid4"`
	FamilyID  string `form:"family_id" validate:"omitempty,uuid4"`
	Search    string `form:"search" validate:"omitempty,max=100"`
	Active    *bool  `form:"active"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=name created_at"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// StudentDetail is a person plus their active sibling edges.
type StudentDetail struct {
	Person   models.Person                `json:"person"`
	Siblings []models.SiblingRelationship `json:"siblings"`
}

// StudentService serves student listings and detail reads.
type StudentService struct {
	repo      studentStore
	siblings  siblingLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService builds a StudentService with sane defaults.
func NewStudentService(repo studentStore, siblings siblingLister, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, siblings: siblings, validator: validate, logger: logger}
}

// List returns students matching the request with pagination metadata.
func (s *StudentService) List(ctx context.Context, req StudentListRequest) ([]models.Student, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student filter")
	}

	filter := models.StudentFilter{
		Program:   models.Program(req.Program),
		BatchID:   req.BatchID,
		FamilyID:  req.FamilyID,
		Search:    strings.TrimSpace(req.Search),
		Active:    req.Active,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a person and their sibling edges.
func (s *StudentService) Get(ctx context.Context, personID string) (*StudentDetail, error) {
	if personID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person id is required")
	}

	person, err := s.repo.FindPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	siblings, err := s.siblings.ListForPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load siblings")
	}

	return &StudentDetail{Person: *person, Siblings: siblings}, nil
}
