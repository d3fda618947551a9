package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type attendanceStore interface {
	CreateSession(ctx context.Context, session *models.AttendanceSession) error
	GetSession(ctx context.Context, id string) (*models.AttendanceSession, error)
	ListSessions(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error)
	CloseSession(ctx context.Context, id string, closedAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	UpsertRecords(ctx context.Context, sessionID string, records []models.AttendanceRecord, now time.Time) error
	SessionRoster(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error)
	ClassSummary(ctx context.Context, classID string, from, to *time.Time) (*models.AttendanceSummary, error)
}

type classStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ActiveAssignments(ctx context.Context, classID string) ([]models.TeacherAssignmentDetail, error)
	HasClassAccess(ctx context.Context, teacherID, classID string) (bool, error)
}

// CreateSessionRequest opens a weekend roll-call for a class.
type CreateSessionRequest struct {
	ClassID string `json:"class_id" validate:"required,uuid4"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Notes   string `json:"notes" validate:"omitempty,max=500"`
}

// MarkAttendanceEntry is one student's outcome in a marking request.
type MarkAttendanceEntry struct {
	ProfileID       string  `json:"profile_id" validate:"required,uuid4"`
	Status          string  `json:"status" validate:"required,attendance_status"`
	LessonCompleted bool    `json:"lesson_completed"`
	LessonName      *string `json:"lesson_name" validate:"omitempty,max=200"`
	LessonFrom      *int    `json:"lesson_from" validate:"omitempty,min=0"`
	LessonTo        *int    `json:"lesson_to" validate:"omitempty,min=0"`
	Notes           *string `json:"notes" validate:"omitempty,max=500"`
}

// MarkAttendanceRequest upserts a batch of records for one session.
type MarkAttendanceRequest struct {
	Records []MarkAttendanceEntry `json:"records" validate:"required,min=1,dive"`
}

// SessionWithState decorates a session with its derived closed state at the
// time of the read.
type SessionWithState struct {
	models.AttendanceSession
	EffectiveClosed bool `json:"effective_closed"`
}

// AttendanceService drives the weekend session lifecycle: create, mark,
// close, delete. Session state is derived from the clock on every call.
type AttendanceService struct {
	repo      attendanceStore
	classes   classStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService builds an AttendanceService with sane defaults.
func NewAttendanceService(repo attendanceStore, classes classStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	registerAttendanceStatusValidator(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		classes:   classes,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

func registerAttendanceStatusValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
}

// CreateSession opens a session for a class on a weekend date. The date must
// be a Saturday or Sunday in UTC, the class must exist and carry at least one
// active teacher assignment, and only one session may exist per class per
// date.
func (s *AttendanceService) CreateSession(ctx context.Context, req CreateSessionRequest, actor *models.JWTClaims) (*SessionWithState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	if wd := date.Weekday(); wd != time.Saturday && wd != time.Sunday {
		return nil, appErrors.ErrNonWeekendDate
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !class.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class is inactive")
	}

	assignments, err := s.classes.ActiveAssignments(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
	}
	if len(assignments) == 0 {
		return nil, appErrors.ErrNoTeacherAssigned
	}

	teacherID := assignments[0].TeacherID
	if actor != nil && actor.Role == models.RoleTeacher {
		allowed := false
		for _, assignment := range assignments {
			if assignment.TeacherID == actor.UserID {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this class")
		}
		teacherID = actor.UserID
	}

	session := &models.AttendanceSession{
		ClassID:   class.ID,
		TeacherID: teacherID,
		Date:      date,
	}
	if req.Notes != "" {
		notes := req.Notes
		session.Notes = &notes
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.logger.Info("attendance session created",
		zap.String("sessionId", session.ID),
		zap.String("classId", class.ID),
		zap.String("date", req.Date),
	)
	return s.withState(session), nil
}

// GetSession returns a session and its derived closed state.
func (s *AttendanceService) GetSession(ctx context.Context, id string, actor *models.JWTClaims) (*SessionWithState, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkSessionAccess(ctx, session, actor); err != nil {
		return nil, err
	}
	return s.withState(session), nil
}

// ListSessions returns sessions matching the filter with pagination metadata.
func (s *AttendanceService) ListSessions(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.ListSessions(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// MarkAttendance upserts records for a session. Writes are rejected once the
// session is closed, explicitly or by its weekend window elapsing; the
// recheck happens inside the same transaction as the writes.
func (s *AttendanceService) MarkAttendance(ctx context.Context, sessionID string, req MarkAttendanceRequest, actor *models.JWTClaims) ([]models.AttendanceRecordDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSessionAccess(ctx, session, actor); err != nil {
		return nil, err
	}

	now := s.now()
	if session.EffectiveClosed(now) {
		return nil, appErrors.ErrSessionClosed
	}

	records := make([]models.AttendanceRecord, 0, len(req.Records))
	seen := make(map[string]int, len(req.Records))
	for _, entry := range req.Records {
		if entry.LessonFrom != nil && entry.LessonTo != nil && *entry.LessonTo < *entry.LessonFrom {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lesson_to must not be before lesson_from")
		}
		record := models.AttendanceRecord{
			ProfileID:       entry.ProfileID,
			Status:          models.AttendanceStatus(entry.Status),
			LessonCompleted: entry.LessonCompleted,
			LessonName:      entry.LessonName,
			LessonFrom:      entry.LessonFrom,
			LessonTo:        entry.LessonTo,
			Notes:           entry.Notes,
		}
		// Last write wins when a profile appears twice in one request.
		if idx, ok := seen[entry.ProfileID]; ok {
			records[idx] = record
			continue
		}
		seen[entry.ProfileID] = len(records)
		records = append(records, record)
	}

	if err := s.repo.UpsertRecords(ctx, session.ID, records, now); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}

	roster, err := s.repo.SessionRoster(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// CloseSession marks a session closed. Closing is idempotent in effect but a
// second close of an already-closed session is reported as a conflict.
func (s *AttendanceService) CloseSession(ctx context.Context, id string, actor *models.JWTClaims) (*SessionWithState, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkSessionAccess(ctx, session, actor); err != nil {
		return nil, err
	}
	if session.Closed {
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "session is already closed")
	}

	now := s.now()
	if err := s.repo.CloseSession(ctx, id, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close session")
	}

	session.Closed = true
	session.UpdatedAt = now.UTC()
	s.emitSessionAudit(ctx, actor, models.AuditActionSessionClose, session)
	return s.withState(session), nil
}

// DeleteSession removes a session and its records. Admin only; the handler
// layer enforces the role, the service enforces existence.
func (s *AttendanceService) DeleteSession(ctx context.Context, id string, actor *models.JWTClaims) error {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.emitSessionAudit(ctx, actor, models.AuditActionSessionDelete, session)
	return nil
}

// Roster returns the marked records for a session.
func (s *AttendanceService) Roster(ctx context.Context, sessionID string, actor *models.JWTClaims) ([]models.AttendanceRecordDetail, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSessionAccess(ctx, session, actor); err != nil {
		return nil, err
	}
	roster, err := s.repo.SessionRoster(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// ClassSummary aggregates attendance for a class over an optional date range.
func (s *AttendanceService) ClassSummary(ctx context.Context, classID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	summary, err := s.repo.ClassSummary(ctx, classID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build summary")
	}
	return summary, nil
}

func (s *AttendanceService) loadSession(ctx context.Context, id string) (*models.AttendanceSession, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// checkSessionAccess restricts teachers to classes they are assigned to.
// Admins see everything.
func (s *AttendanceService) checkSessionAccess(ctx context.Context, session *models.AttendanceSession, actor *models.JWTClaims) error {
	if actor == nil || actor.Role != models.RoleTeacher {
		return nil
	}
	allowed, err := s.classes.HasClassAccess(ctx, actor.UserID, session.ClassID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class access")
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this class")
	}
	return nil
}

func (s *AttendanceService) withState(session *models.AttendanceSession) *SessionWithState {
	return &SessionWithState{
		AttendanceSession: *session,
		EffectiveClosed:   session.EffectiveClosed(s.now()),
	}
}

func (s *AttendanceService) emitSessionAudit(ctx context.Context, actor *models.JWTClaims, action string, session *models.AttendanceSession) {
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
		Resource:   "attendance_session",
		ResourceID: &session.ID,
		IPAddress:  "system",
		UserAgent:  "attendance-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record session audit", zap.Error(err))
	}
}
