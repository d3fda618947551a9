package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/markazapp/markaz-admin-api/internal/models"
)

// BatchRepository persists cohorts and profile-batch membership.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// FindByID returns a batch by identifier.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	const query = `SELECT id, program, name, start_date, capacity, active, created_at, updated_at FROM batches WHERE id = $1 LIMIT 1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return &batch, nil
}

// List returns batches with member counts for the given program.
func (r *BatchRepository) List(ctx context.Context, program models.Program) ([]models.BatchDetail, error) {
	const query = `
SELECT
	b.id, b.program, b.name, b.start_date, b.capacity, b.active, b.created_at, b.updated_at,
	(SELECT COUNT(*) FROM program_profiles pp WHERE pp.batch_id = b.id) AS student_count
FROM batches b
WHERE ($1 = '' OR b.program = $1)
ORDER BY b.name ASC`

	var items []models.BatchDetail
	if err := r.db.SelectContext(ctx, &items, query, string(program)); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return items, nil
}

// AssignProfile moves a profile into a batch. The join against batches keeps
// cross-program assignment out; zero rows affected means the profile was not
// assignable.
func (r *BatchRepository) AssignProfile(ctx context.Context, profileID, batchID string) error {
	const query = `
UPDATE program_profiles pp
SET batch_id = b.id, updated_at = NOW()
FROM batches b
WHERE pp.id = $1 AND b.id = $2 AND b.active AND pp.program = b.program`

	result, err := r.db.ExecContext(ctx, query, profileID, batchID)
	if err != nil {
		return fmt.Errorf("assign profile to batch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign profile rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransferProfile moves a profile between batches; it only matches when the
// profile currently sits in the source batch.
func (r *BatchRepository) TransferProfile(ctx context.Context, profileID, fromBatchID, toBatchID string) error {
	const query = `
UPDATE program_profiles pp
SET batch_id = b.id, updated_at = NOW()
FROM batches b
WHERE pp.id = $1 AND pp.batch_id = $2 AND b.id = $3 AND b.active AND pp.program = b.program`

	result, err := r.db.ExecContext(ctx, query, profileID, fromBatchID, toBatchID)
	if err != nil {
		return fmt.Errorf("transfer profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transfer profile rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountBatches counts all cohorts.
func (r *BatchRepository) CountBatches(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM batches`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return count, nil
}
