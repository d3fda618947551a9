package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/dto"
	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type mockDuplicateRepo struct {
	students []models.Student
	people   map[string]models.Person
	resolved *models.Person
	deleted  []string
}

func (m *mockDuplicateRepo) ListAll(ctx context.Context, program models.Program) ([]models.Student, error) {
	return m.students, nil
}

func (m *mockDuplicateRepo) FindPerson(ctx context.Context, id string) (*models.Person, error) {
	if p, ok := m.people[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDuplicateRepo) FindPeople(ctx context.Context, ids []string) ([]models.Person, error) {
	var found []models.Person
	for _, id := range ids {
		if p, ok := m.people[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (m *mockDuplicateRepo) ResolveDuplicates(ctx context.Context, keep *models.Person, deleteIDs []string) error {
	m.resolved = keep
	m.deleted = deleteIDs
	return nil
}

type mockAuditLogger struct {
	logs []models.AuditLog
}

func (m *mockAuditLogger) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func strPtr(s string) *string { return &s }

func studentWithEmail(personID, email string, createdAt time.Time) models.Student {
	return models.Student{
		ProfileID: "profile-" + personID,
		PersonID:  personID,
		Program:   models.ProgramMahad,
		FirstName: "Test",
		LastName:  personID,
		Email:     strPtr(email),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestDetectGroupsNormalisesEmail(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockDuplicateRepo{students: []models.Student{
		studentWithEmail("p1", "Family@Example.com", base),
		studentWithEmail("p2", " family@example.com ", base.Add(time.Hour)),
		studentWithEmail("p3", "other@example.com", base),
	}}

	svc := NewDuplicateService(repo, nil, nil, nil, 0)
	groups, err := svc.DetectGroups(context.Background(), dto.DetectDuplicatesFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	group := groups[0]
	assert.Equal(t, "family@example.com", group.Email)
	assert.Equal(t, 2, group.Count)
	assert.Equal(t, "p2", group.Keep.PersonID, "newest record becomes the keep candidate")
	require.Len(t, group.Duplicates, 1)
	assert.Equal(t, "p1", group.Duplicates[0].PersonID)
}

func TestDetectGroupsSkipsMissingEmails(t *testing.T) {
	base := time.Now().UTC()
	noEmail := studentWithEmail("p1", "", base)
	noEmail.Email = nil
	repo := &mockDuplicateRepo{students: []models.Student{
		noEmail,
		studentWithEmail("p2", "", base),
		studentWithEmail("p3", "  ", base),
	}}

	svc := NewDuplicateService(repo, nil, nil, nil, 0)
	groups, err := svc.DetectGroups(context.Background(), dto.DetectDuplicatesFilter{})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetectGroupsBreaksCreationTiesByID(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockDuplicateRepo{students: []models.Student{
		studentWithEmail("aaa", "dup@example.com", at),
		studentWithEmail("zzz", "dup@example.com", at),
	}}

	svc := NewDuplicateService(repo, nil, nil, nil, 0)
	groups, err := svc.DetectGroups(context.Background(), dto.DetectDuplicatesFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "zzz", groups[0].Keep.PersonID)
}

func TestDetectGroupsFlagsSiblingAndRecentActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	old := now.Add(-90 * 24 * time.Hour)

	sibling := studentWithEmail("p1", "dup@example.com", old)
	sibling.SiblingCount = 1
	sibling.UpdatedAt = old
	stale := studentWithEmail("p2", "dup@example.com", old.Add(time.Hour))
	stale.UpdatedAt = old

	repo := &mockDuplicateRepo{students: []models.Student{sibling, stale}}
	svc := NewDuplicateService(repo, nil, nil, nil, 30*24*time.Hour)
	svc.now = func() time.Time { return now }

	groups, err := svc.DetectGroups(context.Background(), dto.DetectDuplicatesFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].HasSiblingGroup)
	assert.False(t, groups[0].HasRecentActivity)
}

const (
	keepUUID = "5f4c1d9e-3f3a-4f7a-9a4a-111111111111"
	dupUUID1 = "5f4c1d9e-3f3a-4f7a-9a4a-222222222222"
	dupUUID2 = "5f4c1d9e-3f3a-4f7a-9a4a-333333333333"
)

func personRecord(id string, createdAt time.Time) models.Person {
	return models.Person{
		ID:        id,
		FirstName: "Test",
		LastName:  "Person",
		Active:    true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestResolveRejectsEmptyDeleteSet(t *testing.T) {
	svc := NewDuplicateService(&mockDuplicateRepo{}, nil, nil, nil, 0)
	_, err := svc.Resolve(context.Background(), dto.ResolveDuplicatesRequest{KeepID: keepUUID}, nil)
	assert.ErrorIs(t, err, appErrors.ErrNoDuplicatesSelected)
}

func TestResolveRejectsKeepInDeleteSet(t *testing.T) {
	svc := NewDuplicateService(&mockDuplicateRepo{}, nil, nil, nil, 0)
	_, err := svc.Resolve(context.Background(), dto.ResolveDuplicatesRequest{
		KeepID:    keepUUID,
		DeleteIDs: []string{dupUUID1, keepUUID},
	}, nil)
	assert.ErrorIs(t, err, appErrors.ErrKeepInDeleteSet)
}

func TestResolveFailsWhenCandidateMissing(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockDuplicateRepo{people: map[string]models.Person{
		keepUUID: personRecord(keepUUID, now),
		dupUUID1: personRecord(dupUUID1, now),
	}}
	svc := NewDuplicateService(repo, nil, nil, nil, 0)

	_, err := svc.Resolve(context.Background(), dto.ResolveDuplicatesRequest{
		KeepID:    keepUUID,
		DeleteIDs: []string{dupUUID1, dupUUID2},
	}, nil)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Nil(t, repo.resolved, "nothing may be mutated when a precondition fails")
}

func TestResolveMergesOnlyMissingFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	keep := personRecord(keepUUID, now)
	keep.Email = strPtr("keep@example.com")

	older := personRecord(dupUUID1, now.Add(-2*time.Hour))
	older.Email = strPtr("older@example.com")
	older.Phone = strPtr("555-0100")
	older.GuardianName = strPtr("Older Guardian")

	newer := personRecord(dupUUID2, now.Add(-time.Hour))
	newer.Phone = strPtr("555-0200")

	repo := &mockDuplicateRepo{people: map[string]models.Person{
		keepUUID: keep,
		dupUUID1: older,
		dupUUID2: newer,
	}}
	audit := &mockAuditLogger{}
	svc := NewDuplicateService(repo, audit, nil, nil, 0)

	result, err := svc.Resolve(context.Background(), dto.ResolveDuplicatesRequest{
		KeepID:    keepUUID,
		DeleteIDs: []string{dupUUID1, dupUUID2},
		MergeData: true,
	}, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	require.NotNil(t, repo.resolved)

	assert.Equal(t, "keep@example.com", *repo.resolved.Email, "populated field must survive the merge")
	assert.Equal(t, "555-0200", *repo.resolved.Phone, "most recent candidate wins a missing field")
	assert.Equal(t, "Older Guardian", *repo.resolved.GuardianName)
	assert.ElementsMatch(t, []string{dupUUID1, dupUUID2}, repo.deleted)
	assert.True(t, result.Merged)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionDuplicateResolve, audit.logs[0].Action)
}

func TestResolveWithoutMergeLeavesKeepUntouched(t *testing.T) {
	now := time.Now().UTC()
	keep := personRecord(keepUUID, now)
	dup := personRecord(dupUUID1, now.Add(-time.Hour))
	dup.Phone = strPtr("555-0100")

	repo := &mockDuplicateRepo{people: map[string]models.Person{
		keepUUID: keep,
		dupUUID1: dup,
	}}
	svc := NewDuplicateService(repo, nil, nil, nil, 0)

	result, err := svc.Resolve(context.Background(), dto.ResolveDuplicatesRequest{
		KeepID:    keepUUID,
		DeleteIDs: []string{dupUUID1, dupUUID1},
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, repo.resolved.Phone)
	assert.Equal(t, []string{dupUUID1}, result.DeletedIDs, "repeated ids are collapsed")
	assert.False(t, result.Merged)
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"Family@Example.COM": "family@example.com",
		"  a b@c.com  ":      "ab@c.com",
		"":                   "",
		"   ":                "",
	}
	for input, want := range cases {
		assert.Equal(t, want, normalizeEmail(input))
	}
}
