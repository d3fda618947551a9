package models

import "time"

// Batch is a named cohort of students who start a program together.
type Batch struct {
	ID        string     `db:"id" json:"id"`
	Program   Program    `db:"program" json:"program"`
	Name      string     `db:"name" json:"name"`
	StartDate *time.Time `db:"start_date" json:"start_date,omitempty"`
	Capacity  *int       `db:"capacity" json:"capacity,omitempty"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// BatchDetail extends Batch with the current member count.
type BatchDetail struct {
	Batch
	StudentCount int `db:"student_count" json:"student_count"`
}

// BatchAssignmentResult reports the outcome of a bulk assignment or transfer.
// Per-profile failures are collected rather than aborting the whole request.
type BatchAssignmentResult struct {
	AssignedCount     int      `json:"assigned_count"`
	FailedAssignments []string `json:"failed_assignments"`
}
