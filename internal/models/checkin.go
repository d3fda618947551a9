package models

import "time"

// CheckinLocation is a geofenced site teachers must be inside to check in.
type CheckinLocation struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	RadiusMeters float64   `db:"radius_meters" json:"radius_meters"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TeacherCheckin records a teacher's presence at a class site.
type TeacherCheckin struct {
	ID             string     `db:"id" json:"id"`
	TeacherID      string     `db:"teacher_id" json:"teacher_id"`
	ClassID        string     `db:"class_id" json:"class_id"`
	LocationID     string     `db:"location_id" json:"location_id"`
	Latitude       float64    `db:"latitude" json:"latitude"`
	Longitude      float64    `db:"longitude" json:"longitude"`
	DistanceMeters float64    `db:"distance_meters" json:"distance_meters"`
	CheckedInAt    time.Time  `db:"checked_in_at" json:"checked_in_at"`
	CheckedOutAt   *time.Time `db:"checked_out_at" json:"checked_out_at,omitempty"`
}
