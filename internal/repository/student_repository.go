package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/markazapp/markaz-admin-api/internal/models"
)

const studentProjection = `
SELECT
	pp.id AS profile_id,
	p.id AS person_id,
	pp.program,
	p.first_name,
	p.last_name,
	p.email,
	p.phone,
	pp.family_id,
	pp.batch_id,
	pp.status,
	(SELECT COUNT(*) FROM sibling_relationships sr
		WHERE sr.is_active AND (sr.person1_id = p.id OR sr.person2_id = p.id)) AS sibling_count,
	p.created_at,
	p.updated_at
FROM program_profiles pp
JOIN people p ON p.id = pp.person_id`

// StudentRepository reads student projections and mutates person records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter with a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := strings.Builder{}
	base.WriteString(`
FROM program_profiles pp
JOIN people p ON p.id = pp.person_id
WHERE 1=1`)

	var args []interface{}
	if filter.Program != "" {
		args = append(args, filter.Program)
		fmt.Fprintf(&base, " AND pp.program = $%d", len(args))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		fmt.Fprintf(&base, " AND pp.batch_id = $%d", len(args))
	}
	if filter.FamilyID != "" {
		args = append(args, filter.FamilyID)
		fmt.Fprintf(&base, " AND pp.family_id = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		fmt.Fprintf(&base, " AND p.active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		fmt.Fprintf(&base, " AND (LOWER(p.first_name) LIKE $%d OR LOWER(p.last_name) LIKE $%d OR LOWER(COALESCE(p.email, '')) LIKE $%d)", len(args), len(args), len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	query := strings.Builder{}
	query.WriteString(`
SELECT
	pp.id AS profile_id,
	p.id AS person_id,
	pp.program,
	p.first_name,
	p.last_name,
	p.email,
	p.phone,
	pp.family_id,
	pp.batch_id,
	pp.status,
	(SELECT COUNT(*) FROM sibling_relationships sr
		WHERE sr.is_active AND (sr.person1_id = p.id OR sr.person2_id = p.id)) AS sibling_count,
	p.created_at,
	p.updated_at`)
	query.WriteString(base.String())
	query.WriteString("\nORDER BY p.created_at DESC, p.id DESC")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	args = append(args, pageSize)
	fmt.Fprintf(&query, " LIMIT $%d", len(args))
	args = append(args, (page-1)*pageSize)
	fmt.Fprintf(&query, " OFFSET $%d", len(args))

	var items []models.Student
	if err := r.db.SelectContext(ctx, &items, query.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	return items, total, nil
}

// ListAll returns the full student collection for duplicate detection,
// ordered by creation descending so grouping sees newest records first.
func (r *StudentRepository) ListAll(ctx context.Context, program models.Program) ([]models.Student, error) {
	query := strings.Builder{}
	query.WriteString(studentProjection)
	query.WriteString("\nWHERE 1=1")

	var args []interface{}
	if program != "" {
		args = append(args, program)
		fmt.Fprintf(&query, " AND pp.program = $%d", len(args))
	}
	query.WriteString("\nORDER BY p.created_at DESC, p.id DESC")

	var items []models.Student
	if err := r.db.SelectContext(ctx, &items, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list students for detection: %w", err)
	}
	return items, nil
}

// FindPerson returns a person record by id.
func (r *StudentRepository) FindPerson(ctx context.Context, id string) (*models.Person, error) {
	const query = `SELECT id, first_name, last_name, email, phone, address, date_of_birth, gender, guardian_name, guardian_phone, active, created_at, updated_at FROM people WHERE id = $1 LIMIT 1`
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find person: %w", err)
	}
	return &person, nil
}

// FindPeople resolves person records for the given ids, in no defined order.
func (r *StudentRepository) FindPeople(ctx context.Context, ids []string) ([]models.Person, error) {
	const query = `SELECT id, first_name, last_name, email, phone, address, date_of_birth, gender, guardian_name, guardian_phone, active, created_at, updated_at FROM people WHERE id = ANY($1)`
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find people: %w", err)
	}
	return people, nil
}

// ResolveDuplicates applies a merged keep record and deletes the duplicate
// people in one transaction. Either all of it lands or none of it does.
func (r *StudentRepository) ResolveDuplicates(ctx context.Context, keep *models.Person, deleteIDs []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	keep.UpdatedAt = time.Now().UTC()
	const updateQuery = `UPDATE people SET
	email = :email,
	phone = :phone,
	address = :address,
	date_of_birth = :date_of_birth,
	gender = :gender,
	guardian_name = :guardian_name,
	guardian_phone = :guardian_phone,
	updated_at = :updated_at
WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateQuery, keep); err != nil {
		return fmt.Errorf("merge keep record: %w", err)
	}

	const deleteQuery = `DELETE FROM people WHERE id = ANY($1)`
	result, err := tx.ExecContext(ctx, deleteQuery, pq.Array(deleteIDs))
	if err != nil {
		return fmt.Errorf("delete duplicates: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete duplicates rows: %w", err)
	}
	if affected != int64(len(deleteIDs)) {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve: %w", err)
	}
	return nil
}

// CountActive counts active student profiles across both programs.
func (r *StudentRepository) CountActive(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM program_profiles pp JOIN people p ON p.id = pp.person_id WHERE p.active`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
