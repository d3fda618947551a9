package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

const earthRadiusMeters = 6371000.0

type checkinStore interface {
	ActiveLocation(ctx context.Context) (*models.CheckinLocation, error)
	Create(ctx context.Context, checkin *models.TeacherCheckin) error
	CheckOut(ctx context.Context, id, teacherID string, at time.Time) error
	ListForTeacher(ctx context.Context, teacherID string, limit int) ([]models.TeacherCheckin, error)
}

type classAccessChecker interface {
	HasClassAccess(ctx context.Context, teacherID, classID string) (bool, error)
}

// CheckinService validates teacher presence against the active geofence
// before recording a check-in.
type CheckinService struct {
	repo          checkinStore
	classes       classAccessChecker
	audit         auditLogger
	validator     *validator.Validate
	logger        *zap.Logger
	defaultRadius float64
	now           func() time.Time
}

// NewCheckinService builds a CheckinService with sane defaults.
func NewCheckinService(repo checkinStore, classes classAccessChecker, audit auditLogger, validate *validator.Validate, logger *zap.Logger, defaultRadius float64) *CheckinService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultRadius <= 0 {
		defaultRadius = 200
	}
	return &CheckinService{
		repo:          repo,
		classes:       classes,
		audit:         audit,
		validator:     validate,
		logger:        logger,
		defaultRadius: defaultRadius,
		now:           time.Now,
	}
}

// haversineMeters returns the great-circle distance between two coordinates.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// CheckIn records a teacher arriving at the active site. Coordinates outside
// the site's radius are rejected with the measured distance in the error
// details so the client can show how far off the teacher is.
func (s *CheckinService) CheckIn(ctx context.Context, req dto.CheckInRequest, actor *models.JWTClaims) (*models.TeacherCheckin, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	allowed, err := s.classes.HasClassAccess(ctx, actor.UserID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class access")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this class")
	}

	location, err := s.repo.ActiveLocation(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active check-in location is configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-in location")
	}

	radius := location.RadiusMeters
	if radius <= 0 {
		radius = s.defaultRadius
	}

	distance := haversineMeters(req.Latitude, req.Longitude, location.Latitude, location.Longitude)
	if distance > radius {
		return nil, appErrors.WithDetails(appErrors.ErrOutOfRange, map[string]interface{}{
			"distance_meters": math.Round(distance),
			"radius_meters":   radius,
		})
	}

	checkin := &models.TeacherCheckin{
		TeacherID:      actor.UserID,
		ClassID:        req.ClassID,
		LocationID:     location.ID,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		DistanceMeters: distance,
		CheckedInAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, checkin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}

	s.emitCheckinAudit(ctx, actor, models.AuditActionTeacherCheckin, checkin.ID)
	s.logger.Info("teacher checked in",
		zap.String("teacherId", actor.UserID),
		zap.String("classId", req.ClassID),
		zap.Float64("distanceMeters", distance),
	)
	return checkin, nil
}

// CheckOut stamps the teacher's open check-in.
func (s *CheckinService) CheckOut(ctx context.Context, req dto.CheckOutRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-out payload")
	}

	if err := s.repo.CheckOut(ctx, req.CheckinID, actor.UserID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no open check-in found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check out")
	}

	s.emitCheckinAudit(ctx, actor, models.AuditActionTeacherCheckout, req.CheckinID)
	return nil
}

// History returns the teacher's recent check-ins.
func (s *CheckinService) History(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.TeacherCheckin, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := s.repo.ListForTeacher(ctx, actor.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-in history")
	}
	return items, nil
}

func (s *CheckinService) emitCheckinAudit(ctx context.Context, actor *models.JWTClaims, action string, checkinID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "teacher_checkin",
		ResourceID: &checkinID,
		IPAddress:  "system",
		UserAgent:  "checkin-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record check-in audit", zap.Error(err))
	}
}
