package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markazapp/markaz-admin-api/internal/models"
	appErrors "github.com/markazapp/markaz-admin-api/pkg/errors"
)

type mockBillingRepo struct {
	counts        map[string]int
	subscriptions map[string]models.Subscription
}

func newMockBillingRepo() *mockBillingRepo {
	return &mockBillingRepo{
		counts:        make(map[string]int),
		subscriptions: make(map[string]models.Subscription),
	}
}

func (m *mockBillingRepo) CountFamilyStudents(ctx context.Context, familyID string, program models.Program) (int, error) {
	return m.counts[familyID], nil
}

func (m *mockBillingRepo) GetByFamily(ctx context.Context, familyID string) (*models.Subscription, error) {
	if sub, ok := m.subscriptions[familyID]; ok {
		return &sub, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBillingRepo) Upsert(ctx context.Context, sub *models.Subscription) error {
	m.subscriptions[sub.FamilyID] = *sub
	return nil
}

func TestMonthlyRateCents(t *testing.T) {
	cases := []struct {
		students int
		want     int64
	}{
		{0, 0},
		{1, 150_00},
		{2, 240_00},
		{3, 300_00},
		{5, 500_00},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MonthlyRateCents(tc.students), "students=%d", tc.students)
	}
}

func TestSyncFamilySubscriptionPlans(t *testing.T) {
	cases := []struct {
		students int
		plan     string
		rate     int64
	}{
		{1, "SINGLE", 150_00},
		{2, "SIBLING", 240_00},
		{4, "FAMILY", 400_00},
	}
	for _, tc := range cases {
		repo := newMockBillingRepo()
		repo.counts["fam-1"] = tc.students
		svc := NewBillingService(repo, nil, nil)

		sub, err := svc.SyncFamilySubscription(context.Background(), "fam-1", "", nil)
		require.NoError(t, err)
		assert.Equal(t, tc.plan, sub.Plan)
		assert.Equal(t, tc.rate, sub.MonthlyRateCents)
		assert.Equal(t, models.SubscriptionActive, sub.Status)
		assert.Equal(t, tc.students, repo.subscriptions["fam-1"].StudentCount)
	}
}

func TestSyncFamilySubscriptionCancelsEmptyFamily(t *testing.T) {
	repo := newMockBillingRepo()
	audit := &mockAuditLogger{}
	svc := NewBillingService(repo, audit, nil)

	sub, err := svc.SyncFamilySubscription(context.Background(), "fam-empty", models.ProgramDugsi, nil)
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionCanceled, sub.Status)
	assert.Zero(t, sub.MonthlyRateCents)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSubscriptionSync, audit.logs[0].Action)
}

func TestSyncFamilySubscriptionRejectsUnknownProgram(t *testing.T) {
	svc := NewBillingService(newMockBillingRepo(), nil, nil)

	_, err := svc.SyncFamilySubscription(context.Background(), "fam-1", models.Program("EVENING"), nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGetSubscriptionMissing(t *testing.T) {
	svc := NewBillingService(newMockBillingRepo(), nil, nil)

	_, err := svc.GetSubscription(context.Background(), "fam-unknown")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
