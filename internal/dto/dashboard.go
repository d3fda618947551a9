package dto

import "github.com/markazapp/markaz-admin-api/internal/models"

// ClassAttendanceStats summarises a class over a date range.
type ClassAttendanceStats struct {
	ClassID      string                   `json:"class_id"`
	ClassName    string                   `json:"class_name"`
	SessionCount int                      `json:"session_count"`
	Summary      models.AttendanceSummary `json:"summary"`
}

// DashboardStats is the cached aggregate served to the admin landing page.
type DashboardStats struct {
	StudentCount      int                    `json:"student_count"`
	BatchCount        int                    `json:"batch_count"`
	OpenSessionCount  int                    `json:"open_session_count"`
	DuplicateGroups   int                    `json:"duplicate_groups"`
	ClassStats        []ClassAttendanceStats `json:"class_stats"`
	GeneratedAtMillis int64                  `json:"generated_at_millis"`
}
