package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceSession is one weekend roll-call for a class. At most one session
// exists per (class, date) pair; the date is stored at UTC midnight.
type AttendanceSession struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Date      time.Time `db:"date" json:"date"`
	Closed    bool      `db:"closed" json:"closed"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WindowEnd returns the instant the session's weekend window elapses. A
// Saturday session stays open through the end of the following Sunday; a
// Sunday session ends with its own day. All calendar math is UTC.
func (s *AttendanceSession) WindowEnd() time.Time {
	day := s.Date.UTC().Truncate(24 * time.Hour)
	if day.Weekday() == time.Saturday {
		return day.Add(48 * time.Hour)
	}
	return day.Add(24 * time.Hour)
}

// EffectiveClosed reports the derived closed state at the given instant. It
// must be recomputed on every read and write, never cached.
func (s *AttendanceSession) EffectiveClosed(now time.Time) bool {
	if s.Closed {
		return true
	}
	return !now.UTC().Before(s.WindowEnd())
}

// AttendanceRecord is one student's outcome for a session. Records are
// upserted on the unique (session, profile) key and owned by their session.
type AttendanceRecord struct {
	ID              string           `db:"id" json:"id"`
	SessionID       string           `db:"session_id" json:"session_id"`
	ProfileID       string           `db:"profile_id" json:"profile_id"`
	Status          AttendanceStatus `db:"status" json:"status"`
	LessonCompleted bool             `db:"lesson_completed" json:"lesson_completed"`
	LessonName      *string          `db:"lesson_name" json:"lesson_name,omitempty"`
	LessonFrom      *int             `db:"lesson_from" json:"lesson_from,omitempty"`
	LessonTo        *int             `db:"lesson_to" json:"lesson_to,omitempty"`
	Notes           *string          `db:"notes" json:"notes,omitempty"`
	MarkedAt        time.Time        `db:"marked_at" json:"marked_at"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceSessionDetail joins class and teacher metadata onto a session.
type AttendanceSessionDetail struct {
	AttendanceSession
	ClassName   string `db:"class_name" json:"class_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	RecordCount int    `db:"record_count" json:"record_count"`
}

// AttendanceRecordDetail joins student metadata onto a record for rosters.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentName string `db:"student_name" json:"student_name"`
}

// AttendanceSessionFilter scopes session listings.
type AttendanceSessionFilter struct {
	ClassID  string
	DateFrom *time.Time
	DateTo   *time.Time
	Closed   *bool
	Page     int
	PageSize int
}

// AttendanceSummary aggregates per-status counts for a class or student.
type AttendanceSummary struct {
	Present int     `db:"present" json:"present"`
	Absent  int     `db:"absent" json:"absent"`
	Late    int     `db:"late" json:"late"`
	Excused int     `db:"excused" json:"excused"`
	Total   int     `db:"total" json:"total"`
	Percent float64 `json:"percent"`
}
