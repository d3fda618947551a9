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

// SiblingRepository persists sibling relationship edges.
type SiblingRepository struct {
	db *sqlx.DB
}

// NewSiblingRepository constructs the repository.
func NewSiblingRepository(db *sqlx.DB) *SiblingRepository {
	return &SiblingRepository{db: db}
}

// Link ensures an active edge between the two people. The pair is stored in
// canonical order; linking an already-linked pair reactivates the existing
// row instead of inserting a second edge.
func (r *SiblingRepository) Link(ctx context.Context, personA, personB string, method models.SiblingDetectionMethod) (rel *models.SiblingRelationship, err error) {
	p1, p2 := models.CanonicalPair(personA, personB)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sibling transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var existing models.SiblingRelationship
	const selectQuery = `SELECT id, person1_id, person2_id, is_active, detection_method, created_at, updated_at FROM sibling_relationships WHERE person1_id = $1 AND person2_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &existing, selectQuery, p1, p2); err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("lock sibling edge: %w", err)
		}
		rel = &models.SiblingRelationship{
			ID:              uuid.NewString(),
			Person1ID:       p1,
			Person2ID:       p2,
			IsActive:        true,
			DetectionMethod: method,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		const insertQuery = `INSERT INTO sibling_relationships (id, person1_id, person2_id, is_active, detection_method, created_at, updated_at)
VALUES (:id, :person1_id, :person2_id, :is_active, :detection_method, :created_at, :updated_at)`
		if _, err = tx.NamedExecContext(ctx, insertQuery, rel); err != nil {
			return nil, fmt.Errorf("insert sibling edge: %w", err)
		}
	} else {
		existing.IsActive = true
		existing.UpdatedAt = now
		const updateQuery = `UPDATE sibling_relationships SET is_active = TRUE, updated_at = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, updateQuery, existing.ID, now); err != nil {
			return nil, fmt.Errorf("reactivate sibling edge: %w", err)
		}
		rel = &existing
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sibling edge: %w", err)
	}
	return rel, nil
}

// Unlink deactivates the edge between two people.
func (r *SiblingRepository) Unlink(ctx context.Context, personA, personB string) error {
	p1, p2 := models.CanonicalPair(personA, personB)
	const query = `UPDATE sibling_relationships SET is_active = FALSE, updated_at = $3 WHERE person1_id = $1 AND person2_id = $2 AND is_active`
	result, err := r.db.ExecContext(ctx, query, p1, p2, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("unlink siblings: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unlink siblings rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForPerson returns active edges touching the person.
func (r *SiblingRepository) ListForPerson(ctx context.Context, personID string) ([]models.SiblingRelationship, error) {
	const query = `SELECT id, person1_id, person2_id, is_active, detection_method, created_at, updated_at FROM sibling_relationships WHERE is_active AND (person1_id = $1 OR person2_id = $1) ORDER BY created_at ASC`
	var items []models.SiblingRelationship
	if err := r.db.SelectContext(ctx, &items, query, personID); err != nil {
		return nil, fmt.Errorf("list sibling edges: %w", err)
	}
	return items, nil
}

// FamilyPersonIDs returns the person ids of active profiles in a family,
// used by automatic sibling detection.
func (r *SiblingRepository) FamilyPersonIDs(ctx context.Context, familyID string) ([]string, error) {
	const query = `
SELECT DISTINCT pp.person_id
FROM program_profiles pp
JOIN people p ON p.id = pp.person_id
WHERE pp.family_id = $1 AND p.active
ORDER BY pp.person_id ASC`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, familyID); err != nil {
		return nil, fmt.Errorf("family person ids: %w", err)
	}
	return ids, nil
}
