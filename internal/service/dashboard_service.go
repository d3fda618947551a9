package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:stats"

// DashboardCachePattern matches all dashboard cache entries for invalidation.
const DashboardCachePattern = "dashboard:*"

type dashboardCounters interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardBatchCounter interface {
	CountBatches(ctx context.Context) (int, error)
}

type dashboardAttendanceReader interface {
	CountOpenSessions(ctx context.Context) (int, error)
	ClassSummary(ctx context.Context, classID string, from, to *time.Time) (*models.AttendanceSummary, error)
	ListSessions(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error)
}

type dashboardClassLister interface {
	List(ctx context.Context, program models.Program) ([]models.Class, error)
}

type duplicateGroupCounter interface {
	DetectGroups(ctx context.Context, filter dto.DetectDuplicatesFilter) ([]models.DuplicateGroup, error)
}

// DashboardService composes the cached admin landing-page aggregate.
type DashboardService struct {
	students   dashboardCounters
	batches    dashboardBatchCounter
	attendance dashboardAttendanceReader
	classes    dashboardClassLister
	duplicates duplicateGroupCounter
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cacheTTL   time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students   dashboardCounters
	Batches    dashboardBatchCounter
	Attendance dashboardAttendanceReader
	Classes    dashboardClassLister
	Duplicates duplicateGroupCounter
	Cache      *CacheService
	Logger     *zap.Logger
	CacheTTL   time.Duration
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		students:   params.Students,
		batches:    params.Batches,
		attendance: params.Attendance,
		classes:    params.Classes,
		duplicates: params.Duplicates,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cacheTTL:   ttl,
	}
}

// Stats returns the dashboard aggregate, served from cache when fresh. The
// second return value reports whether the cache was hit.
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStats, bool, error) {
	var cached dto.DashboardStats
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	stats, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
	}
	return stats, false, nil
}

// Invalidate drops the cached aggregate; mutation handlers call this so the
// next read rebuilds.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, DashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context) (*dto.DashboardStats, error) {
	studentCount, err := s.students.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	batchCount, err := s.batches.CountBatches(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count batches")
	}
	openSessions, err := s.attendance.CountOpenSessions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open sessions")
	}

	groups, err := s.duplicates.DetectGroups(ctx, dto.DetectDuplicatesFilter{})
	if err != nil {
		return nil, err
	}

	classes, err := s.classes.List(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	// Last 30 days of class summaries; enough for the landing page without
	// scanning the whole history.
	from := s.now().UTC().Add(-30 * 24 * time.Hour)
	classStats := make([]dto.ClassAttendanceStats, 0, len(classes))
	for _, class := range classes {
		if !class.Active {
			continue
		}
		summary, err := s.attendance.ClassSummary(ctx, class.ID, &from, nil)
		if err != nil {
			s.logger.Warn("failed to summarise class", zap.String("classId", class.ID), zap.Error(err))
			continue
		}
		_, sessionCount, err := s.attendance.ListSessions(ctx, models.AttendanceSessionFilter{
			ClassID:  class.ID,
			DateFrom: &from,
			Page:     1,
			PageSize: 1,
		})
		if err != nil {
			s.logger.Warn("failed to count class sessions", zap.String("classId", class.ID), zap.Error(err))
			continue
		}
		classStats = append(classStats, dto.ClassAttendanceStats{
			ClassID:      class.ID,
			ClassName:    class.Name,
			SessionCount: sessionCount,
			Summary:      *summary,
		})
	}

	return &dto.DashboardStats{
		StudentCount:      studentCount,
		BatchCount:        batchCount,
		OpenSessionCount:  openSessions,
		DuplicateGroups:   len(groups),
		ClassStats:        classStats,
		GeneratedAtMillis: s.now().UnixMilli(),
	}, nil
}
