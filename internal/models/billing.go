package models

import "time"

// SubscriptionStatus enumerates billing states for a family subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
)

// Subscription links a family grouping to its billing plan. The monthly rate
// is derived from the number of enrolled students in the family.
type Subscription struct {
	ID               string             `db:"id" json:"id"`
	FamilyID         string             `db:"family_id" json:"family_id"`
	Plan             string             `db:"plan" json:"plan"`
	MonthlyRateCents int64              `db:"monthly_rate_cents" json:"monthly_rate_cents"`
	StudentCount     int                `db:"student_count" json:"student_count"`
	Status           SubscriptionStatus `db:"status" json:"status"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}
