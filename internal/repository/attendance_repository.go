package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

// AttendanceRepository persists weekend sessions and their records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CreateSession inserts a new session row. The (class_id, date) unique
// constraint surfaces as ErrDuplicateSession rather than a silent upsert.
func (r *AttendanceRepository) CreateSession(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO attendance_sessions (id, class_id, teacher_id, date, closed, notes, created_at, updated_at)
VALUES (:id, :class_id, :teacher_id, :date, :closed, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		if isUniqueViolation(err, "attendance_sessions_class_id_date_key") {
			return appErrors.ErrDuplicateSession
		}
		if isForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrFKViolation, "class or teacher does not exist")
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns a session by id.
func (r *AttendanceRepository) GetSession(ctx context.Context, id string) (*models.AttendanceSession, error) {
	const query = `SELECT id, class_id, teacher_id, date, closed, notes, created_at, updated_at FROM attendance_sessions WHERE id = $1 LIMIT 1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// ListSessions returns session rows matching the filter with a total count.
func (r *AttendanceRepository) ListSessions(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	base := strings.Builder{}
	base.WriteString(`
FROM attendance_sessions s
JOIN classes c ON c.id = s.class_id
JOIN users u ON u.id = s.teacher_id
WHERE 1=1`)

	var args []interface{}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		fmt.Fprintf(&base, " AND s.class_id = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, filter.DateFrom.UTC())
		fmt.Fprintf(&base, " AND s.date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, filter.DateTo.UTC())
		fmt.Fprintf(&base, " AND s.date <= $%d", len(args))
	}
	if filter.Closed != nil {
		args = append(args, *filter.Closed)
		fmt.Fprintf(&base, " AND s.closed = $%d", len(args))
	}

	countQuery := "SELECT COUNT(*) " + base.String()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	query := strings.Builder{}
	query.WriteString(`
SELECT
	s.id, s.class_id, s.teacher_id, s.date, s.closed, s.notes, s.created_at, s.updated_at,
	c.name AS class_name,
	u.full_name AS teacher_name,
	(SELECT COUNT(*) FROM attendance_records ar WHERE ar.session_id = s.id) AS record_count`)
	query.WriteString(base.String())
	query.WriteString("\nORDER BY s.date DESC, c.name ASC")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	args = append(args, pageSize)
	fmt.Fprintf(&query, " LIMIT $%d", len(args))
	args = append(args, (page-1)*pageSize)
	fmt.Fprintf(&query, " OFFSET $%d", len(args))

	var items []models.AttendanceSessionDetail
	if err := r.db.SelectContext(ctx, &items, query.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return items, total, nil
}

// CloseSession marks a session as explicitly closed. Closing is terminal.
func (r *AttendanceRepository) CloseSession(ctx context.Context, id string, closedAt time.Time) error {
	const query = `UPDATE attendance_sessions SET closed = TRUE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, closedAt.UTC())
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteSession removes a session; its records go with it (ON DELETE CASCADE).
func (r *AttendanceRepository) DeleteSession(ctx context.Context, id string) error {
	const query = `DELETE FROM attendance_sessions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertRecords writes a batch of attendance records inside one transaction.
// The session row is locked and its effective closed state recomputed before
// any write, so a concurrent close cannot leave partial records behind.
func (r *AttendanceRepository) UpsertRecords(ctx context.Context, sessionID string, records []models.AttendanceRecord, now time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var session models.AttendanceSession
	const lockQuery = `SELECT id, class_id, teacher_id, date, closed, notes, created_at, updated_at FROM attendance_sessions WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &session, lockQuery, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock session: %w", err)
	}
	if session.EffectiveClosed(now) {
		err = appErrors.ErrSessionClosed
		return err
	}

	const upsertQuery = `INSERT INTO attendance_records
	(id, session_id, profile_id, status, lesson_completed, lesson_name, lesson_from, lesson_to, notes, marked_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (session_id, profile_id) DO UPDATE SET
	status = EXCLUDED.status,
	lesson_completed = EXCLUDED.lesson_completed,
	lesson_name = EXCLUDED.lesson_name,
	lesson_from = EXCLUDED.lesson_from,
	lesson_to = EXCLUDED.lesson_to,
	notes = EXCLUDED.notes,
	marked_at = EXCLUDED.marked_at,
	updated_at = EXCLUDED.updated_at`

	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.SessionID = sessionID
		record.MarkedAt = now.UTC()
		if _, err = tx.ExecContext(ctx, upsertQuery,
			record.ID, record.SessionID, record.ProfileID, record.Status,
			record.LessonCompleted, record.LessonName, record.LessonFrom, record.LessonTo,
			record.Notes, record.MarkedAt, now.UTC(), now.UTC(),
		); err != nil {
			if isForeignKeyViolation(err) {
				err = appErrors.Clone(appErrors.ErrFKViolation, fmt.Sprintf("unknown student profile: %s", record.ProfileID))
				return err
			}
			return fmt.Errorf("upsert record for profile %s: %w", record.ProfileID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance records: %w", err)
	}
	return nil
}

// SessionRoster returns the marked records for a session with student names.
func (r *AttendanceRepository) SessionRoster(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	const query = `
SELECT
	ar.id, ar.session_id, ar.profile_id, ar.status, ar.lesson_completed,
	ar.lesson_name, ar.lesson_from, ar.lesson_to, ar.notes, ar.marked_at,
	ar.created_at, ar.updated_at,
	p.first_name || ' ' || p.last_name AS student_name
FROM attendance_records ar
JOIN program_profiles pp ON pp.id = ar.profile_id
JOIN people p ON p.id = pp.person_id
WHERE ar.session_id = $1
ORDER BY p.first_name ASC, p.last_name ASC`

	var items []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &items, query, sessionID); err != nil {
		return nil, fmt.Errorf("session roster: %w", err)
	}
	return items, nil
}

// ClassSummary aggregates per-status counts for a class over a date range.
func (r *AttendanceRepository) ClassSummary(ctx context.Context, classID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	query := strings.Builder{}
	query.WriteString(`
SELECT
	COUNT(*) FILTER (WHERE ar.status = 'PRESENT') AS present,
	COUNT(*) FILTER (WHERE ar.status = 'ABSENT') AS absent,
	COUNT(*) FILTER (WHERE ar.status = 'LATE') AS late,
	COUNT(*) FILTER (WHERE ar.status = 'EXCUSED') AS excused,
	COUNT(*) AS total
FROM attendance_records ar
JOIN attendance_sessions s ON s.id = ar.session_id
WHERE s.class_id = $1`)

	args := []interface{}{classID}
	if from != nil {
		args = append(args, from.UTC())
		fmt.Fprintf(&query, " AND s.date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, to.UTC())
		fmt.Fprintf(&query, " AND s.date <= $%d", len(args))
	}

	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query.String(), args...); err != nil {
		return nil, fmt.Errorf("class summary: %w", err)
	}
	if summary.Total > 0 {
		summary.Percent = float64(summary.Present+summary.Late) / float64(summary.Total) * 100
	}
	return &summary, nil
}

// CountOpenSessions counts sessions not yet explicitly closed.
func (r *AttendanceRepository) CountOpenSessions(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_sessions WHERE closed = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count open sessions: %w", err)
	}
	return count, nil
}
