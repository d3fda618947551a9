package models

import "time"

// SiblingDetectionMethod records how a sibling edge was established.
type SiblingDetectionMethod string

const (
	SiblingDetectionManual    SiblingDetectionMethod = "MANUAL"
	SiblingDetectionAutomatic SiblingDetectionMethod = "AUTOMATIC"
)

// SiblingRelationship is an unordered edge between two people. The pair is
// stored canonically (person1_id < person2_id) so a reversed insert cannot
// create a second edge; at most one active edge exists per pair.
type SiblingRelationship struct {
	ID              string                 `db:"id" json:"id"`
	Person1ID       string                 `db:"person1_id" json:"person1_id"`
	Person2ID       string                 `db:"person2_id" json:"person2_id"`
	IsActive        bool                   `db:"is_active" json:"is_active"`
	DetectionMethod SiblingDetectionMethod `db:"detection_method" json:"detection_method"`
	CreatedAt       time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time              `db:"updated_at" json:"updated_at"`
}

// CanonicalPair orders two person ids into the stored (person1, person2)
// form.
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}
