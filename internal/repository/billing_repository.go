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

// BillingRepository persists family subscriptions.
type BillingRepository struct {
	db *sqlx.DB
}

// NewBillingRepository constructs the repository.
func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// CountFamilyStudents counts active students enrolled in the program for a
// family grouping.
func (r *BillingRepository) CountFamilyStudents(ctx context.Context, familyID string, program models.Program) (int, error) {
	const query = `
SELECT COUNT(*)
FROM program_profiles pp
JOIN people p ON p.id = pp.person_id
WHERE pp.family_id = $1 AND pp.program = $2 AND p.active`

	var count int
	if err := r.db.GetContext(ctx, &count, query, familyID, program); err != nil {
		return 0, fmt.Errorf("count family students: %w", err)
	}
	return count, nil
}

// GetByFamily returns the subscription for a family grouping.
func (r *BillingRepository) GetByFamily(ctx context.Context, familyID string) (*models.Subscription, error) {
	const query = `SELECT id, family_id, plan, monthly_rate_cents, student_count, status, created_at, updated_at FROM subscriptions WHERE family_id = $1 LIMIT 1`
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, familyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

// Upsert ensures one subscription row per family, locking the existing row
// before updating the derived rate and count.
func (r *BillingRepository) Upsert(ctx context.Context, sub *models.Subscription) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subscription transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var current struct {
		ID string `db:"id"`
	}
	const selectQuery = `SELECT id FROM subscriptions WHERE family_id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, selectQuery, sub.FamilyID); err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("lock subscription: %w", err)
		}
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		sub.CreatedAt = now
		sub.UpdatedAt = now
		const insertQuery = `INSERT INTO subscriptions (id, family_id, plan, monthly_rate_cents, student_count, status, created_at, updated_at)
VALUES (:id, :family_id, :plan, :monthly_rate_cents, :student_count, :status, :created_at, :updated_at)`
		if _, err = tx.NamedExecContext(ctx, insertQuery, sub); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
	} else {
		sub.ID = current.ID
		sub.UpdatedAt = now
		const updateQuery = `UPDATE subscriptions SET plan = :plan, monthly_rate_cents = :monthly_rate_cents, student_count = :student_count, status = :status, updated_at = :updated_at WHERE id = :id`
		if _, err = tx.NamedExecContext(ctx, updateQuery, sub); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit subscription: %w", err)
	}
	return nil
}
