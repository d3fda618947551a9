package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type mockSiblingRepo struct {
	edges    map[string]models.SiblingRelationship
	families map[string][]string
}

func newMockSiblingRepo() *mockSiblingRepo {
	return &mockSiblingRepo{
		edges:    make(map[string]models.SiblingRelationship),
		families: make(map[string][]string),
	}
}

func pairKey(a, b string) string {
	p1, p2 := models.CanonicalPair(a, b)
	return p1 + ":" + p2
}

func (m *mockSiblingRepo) Link(ctx context.Context, personA, personB string, method models.SiblingDetectionMethod) (*models.SiblingRelationship, error) {
	key := pairKey(personA, personB)
	if rel, ok := m.edges[key]; ok {
		rel.IsActive = true
		m.edges[key] = rel
		return &rel, nil
	}
	p1, p2 := models.CanonicalPair(personA, personB)
	rel := models.SiblingRelationship{
		ID:              uuid.NewString(),
		Person1ID:       p1,
		Person2ID:       p2,
		IsActive:        true,
		DetectionMethod: method,
	}
	m.edges[key] = rel
	return &rel, nil
}

func (m *mockSiblingRepo) Unlink(ctx context.Context, personA, personB string) error {
	key := pairKey(personA, personB)
	rel, ok := m.edges[key]
	if !ok || !rel.IsActive {
		return sql.ErrNoRows
	}
	rel.IsActive = false
	m.edges[key] = rel
	return nil
}

func (m *mockSiblingRepo) ListForPerson(ctx context.Context, personID string) ([]models.SiblingRelationship, error) {
	var items []models.SiblingRelationship
	for _, rel := range m.edges {
		if rel.IsActive && (rel.Person1ID == personID || rel.Person2ID == personID) {
			items = append(items, rel)
		}
	}
	return items, nil
}

func (m *mockSiblingRepo) FamilyPersonIDs(ctx context.Context, familyID string) ([]string, error) {
	return m.families[familyID], nil
}

type mockPersonFinder struct {
	people map[string]models.Person
}

func (m *mockPersonFinder) FindPeople(ctx context.Context, ids []string) ([]models.Person, error) {
	var found []models.Person
	for _, id := range ids {
		if p, ok := m.people[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func newSiblingFixture(personIDs ...string) (*SiblingService, *mockSiblingRepo) {
	repo := newMockSiblingRepo()
	finder := &mockPersonFinder{people: make(map[string]models.Person)}
	for _, id := range personIDs {
		finder.people[id] = models.Person{ID: id, Active: true, CreatedAt: time.Now()}
	}
	return NewSiblingService(repo, finder, nil, nil), repo
}

func TestSiblingLinkStoresCanonicalPair(t *testing.T) {
	svc, _ := newSiblingFixture("zed", "abe")

	rel, err := svc.Link(context.Background(), "zed", "abe", nil)
	require.NoError(t, err)

	assert.Equal(t, "abe", rel.Person1ID)
	assert.Equal(t, "zed", rel.Person2ID)
	assert.Equal(t, models.SiblingDetectionManual, rel.DetectionMethod)
}

func TestSiblingLinkRejectsSelf(t *testing.T) {
	svc, _ := newSiblingFixture("p1")

	_, err := svc.Link(context.Background(), "p1", "p1", nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSiblingLinkRejectsUnknownPerson(t *testing.T) {
	svc, _ := newSiblingFixture("p1")

	_, err := svc.Link(context.Background(), "p1", "ghost", nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSiblingUnlinkReversedOrder(t *testing.T) {
	svc, repo := newSiblingFixture("p1", "p2")

	_, err := svc.Link(context.Background(), "p1", "p2", nil)
	require.NoError(t, err)

	// The edge is unordered, so unlinking in the opposite order works.
	err = svc.Unlink(context.Background(), "p2", "p1", nil)
	require.NoError(t, err)
	assert.False(t, repo.edges[pairKey("p1", "p2")].IsActive)

	err = svc.Unlink(context.Background(), "p1", "p2", nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAutoLinkFamilyPairwise(t *testing.T) {
	svc, repo := newSiblingFixture()
	repo.families["fam-1"] = []string{"p1", "p2", "p3"}

	linked, err := svc.AutoLinkFamily(context.Background(), "fam-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, linked, "three people form three pairs")
	assert.Len(t, repo.edges, 3)
	for _, rel := range repo.edges {
		assert.Equal(t, models.SiblingDetectionAutomatic, rel.DetectionMethod)
	}
}

func TestAutoLinkFamilySingleMemberIsNoop(t *testing.T) {
	svc, repo := newSiblingFixture()
	repo.families["fam-1"] = []string{"p1"}

	linked, err := svc.AutoLinkFamily(context.Background(), "fam-1", nil)
	require.NoError(t, err)
	assert.Zero(t, linked)
	assert.Empty(t, repo.edges)
}

func TestAutoLinkFamilyReactivatesExistingEdges(t *testing.T) {
	svc, repo := newSiblingFixture("p1", "p2")
	repo.families["fam-1"] = []string{"p1", "p2"}

	_, err := svc.Link(context.Background(), "p1", "p2", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Unlink(context.Background(), "p1", "p2", nil))

	linked, err := svc.AutoLinkFamily(context.Background(), "fam-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, linked)
	assert.Len(t, repo.edges, 1, "reactivation never duplicates an edge")
	assert.True(t, repo.edges[pairKey("p1", "p2")].IsActive)
}

func TestListForPersonRequiresID(t *testing.T) {
	svc, _ := newSiblingFixture()

	_, err := svc.ListForPerson(context.Background(), "")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
