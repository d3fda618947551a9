package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionColumns() []string {
	return []string{"id", "class_id", "teacher_id", "date", "closed", "notes", "created_at", "updated_at"}
}

func TestAttendanceRepositoryCreateSessionDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "attendance_sessions_class_id_date_key"})

	err := repo.CreateSession(context.Background(), &models.AttendanceSession{
		ClassID:   "class-1",
		TeacherID: "teacher-1",
		Date:      time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, appErrors.ErrDuplicateSession)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCloseSessionMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_sessions SET closed = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CloseSession(context.Background(), "ghost", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertRecordsClosedRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// Saturday session, write attempted the following Tuesday.
	date := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM attendance_sessions WHERE id = \\$1 FOR UPDATE").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("sess-1", "class-1", "teacher-1", date, false, nil, date, date))
	mock.ExpectRollback()

	err := repo.UpsertRecords(context.Background(), "sess-1", []models.AttendanceRecord{
		{ProfileID: "profile-1", Status: models.AttendanceStatusPresent},
	}, now)
	require.ErrorIs(t, err, appErrors.ErrSessionClosed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertRecordsCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 7, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM attendance_sessions WHERE id = \\$1 FOR UPDATE").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("sess-1", "class-1", "teacher-1", date, false, nil, date, date))
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	records := []models.AttendanceRecord{
		{ProfileID: "profile-1", Status: models.AttendanceStatusPresent},
		{ProfileID: "profile-2", Status: models.AttendanceStatusAbsent},
	}
	err := repo.UpsertRecords(context.Background(), "sess-1", records, now)
	require.NoError(t, err)
	require.Equal(t, now, records[0].MarkedAt)
	require.Equal(t, "sess-1", records[1].SessionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryGetSessionMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM attendance_sessions WHERE id = \\$1 LIMIT 1").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSession(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
