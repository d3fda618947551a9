package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/markazapp/markaz-admin-api/internal/models"
)

// CheckinRepository persists geofenced teacher check-ins.
type CheckinRepository struct {
	db *sqlx.DB
}

// NewCheckinRepository constructs the repository.
func NewCheckinRepository(db *sqlx.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// ActiveLocation returns the currently active geofence site.
func (r *CheckinRepository) ActiveLocation(ctx context.Context) (*models.CheckinLocation, error) {
	const query = `SELECT id, name, latitude, longitude, radius_meters, active, created_at FROM checkin_locations WHERE active ORDER BY created_at DESC LIMIT 1`
	var location models.CheckinLocation
	if err := r.db.GetContext(ctx, &location, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("active checkin location: %w", err)
	}
	return &location, nil
}

// Create stores a new check-in row.
func (r *CheckinRepository) Create(ctx context.Context, checkin *models.TeacherCheckin) error {
	if checkin.ID == "" {
		checkin.ID = uuid.NewString()
	}
	if checkin.CheckedInAt.IsZero() {
		checkin.CheckedInAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_checkins (id, teacher_id, class_id, location_id, latitude, longitude, distance_meters, checked_in_at, checked_out_at)
VALUES (:id, :teacher_id, :class_id, :location_id, :latitude, :longitude, :distance_meters, :checked_in_at, :checked_out_at)`
	if _, err := r.db.NamedExecContext(ctx, query, checkin); err != nil {
		return fmt.Errorf("create checkin: %w", err)
	}
	return nil
}

// CheckOut stamps the open check-in; rows already checked out do not match.
func (r *CheckinRepository) CheckOut(ctx context.Context, id, teacherID string, at time.Time) error {
	const query = `UPDATE teacher_checkins SET checked_out_at = $3 WHERE id = $1 AND teacher_id = $2 AND checked_out_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, teacherID, at.UTC())
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checkout rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForTeacher returns a teacher's check-ins, newest first.
func (r *CheckinRepository) ListForTeacher(ctx context.Context, teacherID string, limit int) ([]models.TeacherCheckin, error) {
	if limit < 1 {
		limit = 20
	}
	const query = `SELECT id, teacher_id, class_id, location_id, latitude, longitude, distance_meters, checked_in_at, checked_out_at FROM teacher_checkins WHERE teacher_id = $1 ORDER BY checked_in_at DESC LIMIT $2`
	var items []models.TeacherCheckin
	if err := r.db.SelectContext(ctx, &items, query, teacherID, limit); err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	return items, nil
}
