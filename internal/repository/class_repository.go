package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/markazapp/markaz-admin-api/internal/models"
)

// ClassRepository reads classes and their teacher assignments.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, program, name, room, active, created_at, updated_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// List returns all classes for a program.
func (r *ClassRepository) List(ctx context.Context, program models.Program) ([]models.Class, error) {
	const query = `SELECT id, program, name, room, active, created_at, updated_at FROM classes WHERE ($1 = '' OR program = $1) ORDER BY name ASC`
	var items []models.Class
	if err := r.db.SelectContext(ctx, &items, query, string(program)); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return items, nil
}

// ActiveAssignments returns active teacher assignments for a class.
func (r *ClassRepository) ActiveAssignments(ctx context.Context, classID string) ([]models.TeacherAssignmentDetail, error) {
	const query = `
SELECT
	ta.id, ta.teacher_id, ta.class_id, ta.is_active, ta.created_at,
	u.full_name AS teacher_name,
	c.name AS class_name
FROM teacher_assignments ta
JOIN users u ON u.id = ta.teacher_id
JOIN classes c ON c.id = ta.class_id
WHERE ta.class_id = $1 AND ta.is_active
ORDER BY ta.created_at ASC`

	var items []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &items, query, classID); err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	return items, nil
}

// HasClassAccess reports whether a teacher holds an active assignment for the
// class.
func (r *ClassRepository) HasClassAccess(ctx context.Context, teacherID, classID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_id = $2 AND is_active)`
	var allowed bool
	if err := r.db.GetContext(ctx, &allowed, query, teacherID, classID); err != nil {
		return false, fmt.Errorf("check class access: %w", err)
	}
	return allowed, nil
}
