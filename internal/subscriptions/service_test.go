package subscriptions

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhive/backend/internal/companies"
	"github.com/eventhive/backend/internal/models"
)

var testNow = time.Date(2026, 6, 15, 9, 30, 0, 0, time.UTC)

type fakeWorld struct {
	mu          sync.Mutex
	companies   map[uuid.UUID]*models.Company
	events      map[uuid.UUID]int
	members     map[uuid.UUID]int
	invalidated int
	setErr      error
}

func newWorld() *fakeWorld {
	return &fakeWorld{
		companies: map[uuid.UUID]*models.Company{},
		events:    map[uuid.UUID]int{},
		members:   map[uuid.UUID]int{},
	}
}

func (w *fakeWorld) GetCompanyByID(_ context.Context, id uuid.UUID) (*models.Company, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (w *fakeWorld) InvalidateCache(context.Context) {
	w.mu.Lock()
	w.invalidated++
	w.mu.Unlock()
}

func (w *fakeWorld) CountEventsSince(_ context.Context, id uuid.UUID, _ time.Time) (int, error) {
	return w.events[id], nil
}

func (w *fakeWorld) CountActiveMembers(_ context.Context, id uuid.UUID) (int, error) {
	return w.members[id], nil
}

func (w *fakeWorld) SetState(_ context.Context, id uuid.UUID, s State) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.setErr != nil {
		return false, w.setErr
	}
	c, ok := w.companies[id]
	if !ok {
		return false, nil
	}
	c.SubscriptionTier = s.Tier
	c.SubscriptionStatus = s.Status
	c.SubscriptionStartedAt = s.StartedAt
	c.SubscriptionExpiresAt = s.ExpiresAt
	return true, nil
}

func (w *fakeWorld) ListExpiring(_ context.Context, from, to time.Time) ([]Expiring, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Expiring
	for _, c := range w.companies {
		if c.SubscriptionStatus != models.SubscriptionActive || c.SubscriptionTier == models.TierFree ||
			c.SubscriptionExpiresAt == nil {
			continue
		}
		if c.SubscriptionExpiresAt.Before(from) || c.SubscriptionExpiresAt.After(to) {
			continue
		}
		out = append(out, Expiring{CompanyID: c.ID, Name: c.Name, Tier: c.SubscriptionTier, ExpiresAt: *c.SubscriptionExpiresAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (w *fakeWorld) add(tier models.Tier) *models.Company {
	c := &models.Company{
		ID:                 uuid.New(),
		Name:               "Acme",
		SubscriptionTier:   tier,
		SubscriptionStatus: models.SubscriptionActive,
	}
	w.companies[c.ID] = c
	return c
}

func newTestService(w *fakeWorld) *Service {
	s := NewService(w, w, nil)
	s.now = func() time.Time { return testNow }
	return s
}

func TestGetSubscriptionUsage_ExpiryWindow(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)
	c := w.add(models.TierPro)

	in5 := testNow.Add(5 * 24 * time.Hour)
	c.SubscriptionExpiresAt = &in5
	u, err := svc.GetSubscriptionUsage(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, u.SubscriptionExpiresSoon)
	require.NotNil(t, u.DaysUntilExpiry)
	assert.Equal(t, 5, *u.DaysUntilExpiry)

	in10 := testNow.Add(10 * 24 * time.Hour)
	c.SubscriptionExpiresAt = &in10
	u, err = svc.GetSubscriptionUsage(context.Background(), c.ID)
	require.NoError(t, err)
	assert.False(t, u.SubscriptionExpiresSoon)
	assert.Equal(t, 10, *u.DaysUntilExpiry)

	past := testNow.Add(-time.Hour)
	c.SubscriptionExpiresAt = &past
	u, err = svc.GetSubscriptionUsage(context.Background(), c.ID)
	require.NoError(t, err)
	assert.False(t, u.SubscriptionExpiresSoon)
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 7, DaysUntil(testNow.Add(7*24*time.Hour), testNow))
	assert.Equal(t, 1, DaysUntil(testNow.Add(time.Hour), testNow))
	assert.Equal(t, 8, DaysUntil(testNow.Add(7*24*time.Hour+time.Minute), testNow))
	assert.Equal(t, 0, DaysUntil(testNow, testNow))
}

func TestGetSubscriptionUsage_Limits(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)
	c := w.add(models.TierBasic)
	w.events[c.ID] = 4
	w.members[c.ID] = 3

	u, err := svc.GetSubscriptionUsage(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, u.CanCreateEvent)
	assert.False(t, u.CanAddTeamMember)
	require.NotNil(t, u.EventsRemaining)
	assert.Equal(t, 6, *u.EventsRemaining)
	assert.Equal(t, 0, *u.TeamMembersRemaining)
	assert.Nil(t, u.DaysUntilExpiry)

	ent := w.add(models.TierEnterprise)
	w.events[ent.ID] = 1000
	u, err = svc.GetSubscriptionUsage(context.Background(), ent.ID)
	require.NoError(t, err)
	assert.True(t, u.CanCreateEvent)
	assert.Nil(t, u.EventsRemaining)
	assert.Nil(t, u.TeamMembersRemaining)
}

func TestCheckSubscriptionLimit_FreeTierExhausted(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)
	c := w.add(models.TierFree)
	w.events[c.ID] = 3

	d, err := svc.CheckSubscriptionLimit(context.Background(), c.ID, models.ActionCreateEvent)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.UpgradeRequired)
	assert.Equal(t, 3, d.CurrentUsage)
	require.NotNil(t, d.Limit)
	assert.Equal(t, 3, *d.Limit)
	assert.Contains(t, d.Reason, "monthly event limit reached (3/3)")

	err = svc.RequireLimit(context.Background(), c.ID, models.ActionCreateEvent)
	var ce *companies.CompanyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, companies.CodeSubscriptionLimitReached, ce.Code)
	assert.Equal(t, http.StatusForbidden, ce.StatusCode)
}

func TestCheckSubscriptionLimit_Allowed(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)
	c := w.add(models.TierFree)
	w.events[c.ID] = 2

	d, err := svc.CheckSubscriptionLimit(context.Background(), c.ID, models.ActionCreateEvent)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, d.UpgradeRequired)
	assert.Empty(t, d.Reason)
	assert.NoError(t, svc.RequireLimit(context.Background(), c.ID, models.ActionCreateEvent))
}

func TestCheckSubscriptionLimit_Errors(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)

	_, err := svc.CheckSubscriptionLimit(context.Background(), uuid.New(), models.ActionCreateEvent)
	assert.True(t, companies.IsCode(err, companies.CodeNotFound))

	_, err = svc.CheckSubscriptionLimit(context.Background(), uuid.New(), models.LimitAction("fly"))
	assert.True(t, companies.IsCode(err, companies.CodeInvalidDocuments))
}

func TestUpdateSubscriptionTier(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)
	c := w.add(models.TierFree)

	got, err := svc.UpdateSubscriptionTier(context.Background(), c.ID, models.TierPro, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, got.SubscriptionTier)
	assert.Equal(t, models.SubscriptionActive, got.SubscriptionStatus)
	require.NotNil(t, got.SubscriptionStartedAt)
	assert.Equal(t, testNow, *got.SubscriptionStartedAt)
	require.NotNil(t, got.SubscriptionExpiresAt)
	assert.Equal(t, testNow.Add(365*24*time.Hour), *got.SubscriptionExpiresAt)
	assert.Equal(t, 1, w.invalidated)

	// a later move keeps the original start date and honours an explicit expiry
	svc.now = func() time.Time { return testNow.AddDate(0, 1, 0) }
	exp := testNow.AddDate(0, 3, 0)
	got, err = svc.UpdateSubscriptionTier(context.Background(), c.ID, models.TierEnterprise, &exp)
	require.NoError(t, err)
	assert.Equal(t, testNow, *got.SubscriptionStartedAt)
	assert.Equal(t, exp, *got.SubscriptionExpiresAt)

	_, err = svc.UpdateSubscriptionTier(context.Background(), c.ID, models.Tier("platinum"), nil)
	assert.True(t, companies.IsCode(err, companies.CodeInvalidDocuments))
}

func TestUpdateSubscriptionTier_FreeHasNoDefaultExpiry(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)
	c := w.add(models.TierBasic)

	got, err := svc.UpdateSubscriptionTier(context.Background(), c.ID, models.TierFree, nil)
	require.NoError(t, err)
	assert.Nil(t, got.SubscriptionExpiresAt)
	assert.Nil(t, got.SubscriptionStartedAt)
}

func TestCancelSuspendReactivate(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)
	c := w.add(models.TierPro)
	exp := testNow.AddDate(0, 2, 0)
	c.SubscriptionExpiresAt = &exp

	got, err := svc.SuspendSubscription(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionSuspended, got.SubscriptionStatus)
	assert.Equal(t, models.TierPro, got.SubscriptionTier)
	assert.Equal(t, exp, *got.SubscriptionExpiresAt)

	got, err = svc.ReactivateSubscription(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, got.SubscriptionStatus)

	got, err = svc.CancelSubscription(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, got.SubscriptionStatus)
	assert.Equal(t, models.TierFree, got.SubscriptionTier)
	assert.Nil(t, got.SubscriptionExpiresAt)
	assert.Equal(t, 3, w.invalidated)

	_, err = svc.CancelSubscription(context.Background(), uuid.New())
	assert.True(t, companies.IsCode(err, companies.CodeNotFound))
}

func TestWriteFailureIsStorageError(t *testing.T) {
	w := newWorld()
	w.setErr = errors.New("timeout")
	svc := newTestService(w)
	c := w.add(models.TierPro)

	_, err := svc.SuspendSubscription(context.Background(), c.ID)
	var ce *companies.CompanyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusInternalServerError, ce.StatusCode)
	assert.Zero(t, w.invalidated)
}

func TestGetExpiringSubscriptions(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)
	in3 := testNow.AddDate(0, 0, 3)
	in6 := testNow.AddDate(0, 0, 6)
	in20 := testNow.AddDate(0, 0, 20)

	a := w.add(models.TierPro)
	a.SubscriptionExpiresAt = &in6
	b := w.add(models.TierBasic)
	b.SubscriptionExpiresAt = &in3
	far := w.add(models.TierPro)
	far.SubscriptionExpiresAt = &in20
	suspended := w.add(models.TierPro)
	suspended.SubscriptionExpiresAt = &in3
	suspended.SubscriptionStatus = models.SubscriptionSuspended
	free := w.add(models.TierFree)
	free.SubscriptionExpiresAt = &in3

	list, err := svc.GetExpiringSubscriptions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].CompanyID)
	assert.Equal(t, a.ID, list[1].CompanyID)

	list, err = svc.GetExpiringSubscriptions(context.Background(), 30)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestGetRecommendedUpgrade(t *testing.T) {
	w := newWorld()
	svc := newTestService(w)

	tests := []struct {
		tier    models.Tier
		events  int
		members int
		want    models.Tier
	}{
		{models.TierFree, 3, 1, models.TierBasic},
		{models.TierFree, 0, 1, models.TierBasic},
		{models.TierBasic, 10, 1, models.TierPro},
		{models.TierPro, 50, 2, models.TierEnterprise},
		{models.TierBasic, 2, 1, ""},
		{models.TierEnterprise, 5000, 500, ""},
	}
	for _, tt := range tests {
		c := w.add(tt.tier)
		w.events[c.ID] = tt.events
		w.members[c.ID] = tt.members
		rec, err := svc.GetRecommendedUpgrade(context.Background(), c.ID)
		require.NoError(t, err)
		if tt.want == "" {
			assert.Nil(t, rec, "tier %s", tt.tier)
			continue
		}
		require.NotNil(t, rec, "tier %s", tt.tier)
		assert.Equal(t, tt.want, rec.RecommendedTier)
	}
}
