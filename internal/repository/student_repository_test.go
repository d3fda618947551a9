package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/models"
)

func TestStudentRepositoryResolveDuplicatesCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE people SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM people WHERE id = ANY").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	keep := &models.Person{ID: "keep-1", FirstName: "Test", LastName: "Person"}
	err := repo.ResolveDuplicates(context.Background(), keep, []string{"dup-1", "dup-2"})
	require.NoError(t, err)
	require.False(t, keep.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryResolveDuplicatesPartialDeleteRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE people SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Only one of the two duplicates still exists.
	mock.ExpectExec("DELETE FROM people WHERE id = ANY").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	keep := &models.Person{ID: "keep-1"}
	err := repo.ResolveDuplicates(context.Background(), keep, []string{"dup-1", "dup-2"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindPersonMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM people WHERE id = \\$1 LIMIT 1").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindPerson(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListAllFiltersProgram(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"profile_id", "person_id", "program", "first_name", "last_name",
		"email", "phone", "family_id", "batch_id", "status", "sibling_count",
		"created_at", "updated_at",
	}).AddRow("profile-1", "person-1", "DUGSI", "Amina", "Hassan",
		"amina@example.com", nil, nil, nil, "ACTIVE", 0, now, now)

	mock.ExpectQuery("FROM program_profiles pp").
		WithArgs(models.ProgramDugsi).
		WillReturnRows(rows)

	students, err := repo.ListAll(context.Background(), models.ProgramDugsi)
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, "Amina", students[0].FirstName)
	require.NoError(t, mock.ExpectationsWereMet())
}
