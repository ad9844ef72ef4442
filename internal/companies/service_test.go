package companies

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/cache"
)

type fakeStore struct {
	mu        sync.Mutex
	companies map[uuid.UUID]*models.Company
	members   []models.CompanyMember
	events    map[uuid.UUID]int

	addMemberErr error
	deleteErr    error
	getErr       error
	deleted      []uuid.UUID
	getCalls     int
	listCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{companies: map[uuid.UUID]*models.Company{}, events: map[uuid.UUID]int{}}
}

func (f *fakeStore) Create(_ context.Context, c *models.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.companies {
		if existing.Slug == c.Slug {
			return ErrSlugTaken
		}
	}
	cp := *c
	f.companies[c.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.companies, id)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	c, ok := f.companies[id]
	if !ok || c.Status != models.CompanyStatusActive {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (*models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, c := range f.companies {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, fields map[string]string) (*models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok || c.Status != models.CompanyStatusActive {
		return nil, nil
	}
	for k, v := range fields {
		switch k {
		case "name":
			c.Name = v
		case "description":
			c.Description = v
		case "email":
			c.Email = v
		case "website":
			c.Website = v
		case "city":
			c.City = v
		}
	}
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (f *fakeStore) SoftDelete(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok || c.Status != models.CompanyStatusActive {
		return false, nil
	}
	c.Status = models.CompanyStatusDeleted
	return true, nil
}

func (f *fakeStore) List(_ context.Context, fl ListFilters) ([]models.Company, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var all []models.Company
	for _, c := range f.companies {
		if c.Status != models.CompanyStatusActive || c.VerificationStatus != fl.VerificationStatus {
			continue
		}
		if fl.Industry != "" && c.Industry != fl.Industry {
			continue
		}
		if fl.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(fl.Search)) {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if fl.Offset >= total {
		return nil, total, nil
	}
	end := fl.Offset + fl.Limit
	if end > total {
		end = total
	}
	return all[fl.Offset:end], total, nil
}

func (f *fakeStore) SetVerification(_ context.Context, id uuid.UUID, status models.VerificationStatus, adminID uuid.UUID, at time.Time) (*models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return nil, nil
	}
	c.VerificationStatus = status
	c.VerifiedAt = &at
	c.VerifiedBy = &adminID
	cp := *c
	return &cp, nil
}

func (f *fakeStore) AddMember(_ context.Context, m *models.CompanyMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addMemberErr != nil {
		return f.addMemberErr
	}
	f.members = append(f.members, *m)
	return nil
}

func (f *fakeStore) ListMembers(_ context.Context, companyID uuid.UUID) ([]models.CompanyMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CompanyMember
	for _, m := range f.members {
		if m.CompanyID == companyID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) CountEventsSince(_ context.Context, companyID uuid.UUID, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[companyID], nil
}

func (f *fakeStore) CountActiveMembers(ctx context.Context, companyID uuid.UUID) (int, error) {
	members, _ := f.ListMembers(ctx, companyID)
	n := 0
	for _, m := range members {
		if m.Status == models.MemberStatusActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) IncrementCounter(_ context.Context, companyID uuid.UUID, counter models.CompanyCounter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[companyID]
	if !ok {
		return nil
	}
	switch counter {
	case models.CounterEvents:
		c.TotalEvents++
	case models.CounterHackathons:
		c.TotalHackathons++
	case models.CounterRegistrations:
		c.TotalRegistrations++
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewService(store, cache.NewMemory(CacheTTL), nil), store
}

func validInput(name string) CreateInput {
	return CreateInput{Name: name, Email: "hello@acme.test", Website: "https://acme.test"}
}

func requireCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	var ce *CompanyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, code, ce.Code)
	assert.Equal(t, status, ce.StatusCode)
}

func TestCreateCompany(t *testing.T) {
	svc, store := newTestService(t)
	owner := uuid.New()

	c, err := svc.CreateCompany(context.Background(), validInput("Acme, Inc.!!"), owner)
	require.NoError(t, err)
	assert.Equal(t, "acme-inc", c.Slug)
	assert.Equal(t, models.VerificationPending, c.VerificationStatus)
	assert.Equal(t, models.TierFree, c.SubscriptionTier)
	assert.Equal(t, models.SubscriptionActive, c.SubscriptionStatus)
	assert.Equal(t, owner, c.CreatedBy)

	members, err := svc.ListMembers(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, owner, members[0].UserID)
	assert.Equal(t, models.MemberRoleOwner, members[0].Role)
	assert.Equal(t, models.MemberStatusActive, members[0].Status)
	assert.Empty(t, store.deleted)
}

func TestCreateCompany_MissingFields(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateCompany(context.Background(), CreateInput{Name: "Acme"}, uuid.New())
	requireCode(t, err, CodeInvalidDocuments, http.StatusBadRequest)

	_, err = svc.CreateCompany(context.Background(), validInput("!!!"), uuid.New())
	requireCode(t, err, CodeInvalidDocuments, http.StatusBadRequest)
}

func TestCreateCompany_DuplicateSlug(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateCompany(context.Background(), validInput("Acme Inc"), uuid.New())
	require.NoError(t, err)

	_, err = svc.CreateCompany(context.Background(), validInput("acme, inc."), uuid.New())
	requireCode(t, err, CodeAlreadyExists, http.StatusConflict)
}

func TestCreateCompany_MembershipFailureRemovesCompany(t *testing.T) {
	svc, store := newTestService(t)
	store.addMemberErr = errors.New("insert failed")

	_, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	requireCode(t, err, CodeAlreadyExists, http.StatusInternalServerError)
	require.Len(t, store.deleted, 1)

	got, err := svc.GetCompanyBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateCompany_RollbackFailureSurfacesBothErrors(t *testing.T) {
	svc, store := newTestService(t)
	memberErr := errors.New("insert failed")
	deleteErr := errors.New("delete failed")
	store.addMemberErr = memberErr
	store.deleteErr = deleteErr

	_, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	requireCode(t, err, CodeAlreadyExists, http.StatusInternalServerError)
	assert.ErrorIs(t, err, memberErr)
	assert.ErrorIs(t, err, deleteErr)
}

func TestGetCompanyByID_CachesReads(t *testing.T) {
	svc, store := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)

	before := store.getCalls
	_, err = svc.GetCompanyByID(context.Background(), c.ID)
	require.NoError(t, err)
	_, err = svc.GetCompanyByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, store.getCalls)
}

func TestGetCompanyByID_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.GetCompanyByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestWritesInvalidateCache(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)

	got, err := svc.GetCompanyByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	_, err = svc.UpdateCompany(context.Background(), c.ID, map[string]interface{}{"name": "Acme Labs"})
	require.NoError(t, err)

	got, err = svc.GetCompanyByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Labs", got.Name)
}

func TestUpdateCompany_IgnoresProtectedFields(t *testing.T) {
	svc, store := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)

	updated, err := svc.UpdateCompany(context.Background(), c.ID, map[string]interface{}{
		"verification_status": "verified",
		"slug":                "hijack",
		"id":                  uuid.New().String(),
		"created_by":          uuid.New().String(),
		"city":                "Berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, "Berlin", updated.City)
	assert.Equal(t, models.VerificationPending, updated.VerificationStatus)
	assert.Equal(t, "acme", updated.Slug)
	assert.Equal(t, c.ID, updated.ID)
	assert.Equal(t, c.CreatedBy, store.companies[c.ID].CreatedBy)
}

func TestUpdateCompany_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)

	_, err = svc.UpdateCompany(context.Background(), c.ID, map[string]interface{}{"email": "  "})
	requireCode(t, err, CodeInvalidDocuments, http.StatusBadRequest)

	_, err = svc.UpdateCompany(context.Background(), c.ID, map[string]interface{}{"city": 42})
	requireCode(t, err, CodeInvalidDocuments, http.StatusBadRequest)

	_, err = svc.UpdateCompany(context.Background(), c.ID, map[string]interface{}{"subscription_tier": "pro"})
	requireCode(t, err, CodeInvalidDocuments, http.StatusBadRequest)

	_, err = svc.UpdateCompany(context.Background(), uuid.New(), map[string]interface{}{"city": "Oslo"})
	requireCode(t, err, CodeNotFound, http.StatusNotFound)
}

func TestDeleteCompany(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)
	_, err = svc.GetCompanyByID(context.Background(), c.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCompany(context.Background(), c.ID))
	got, err := svc.GetCompanyByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	requireCode(t, svc.DeleteCompany(context.Background(), c.ID), CodeNotFound, http.StatusNotFound)
}

func TestDeleteCompany_HidesSlugButKeepsItReserved(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)
	got, err := svc.GetCompanyBySlug(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, svc.DeleteCompany(context.Background(), c.ID))
	got, err = svc.GetCompanyBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	requireCode(t, err, CodeAlreadyExists, http.StatusConflict)
}

func TestVerifyAndRejectCompany(t *testing.T) {
	svc, _ := newTestService(t)
	admin := uuid.New()
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)

	verified, err := svc.VerifyCompany(context.Background(), c.ID, admin)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified())
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, admin, *verified.VerifiedBy)

	_, err = svc.VerifyCompany(context.Background(), c.ID, admin)
	requireCode(t, err, CodeAlreadyExists, http.StatusBadRequest)

	rejected, err := svc.RejectCompany(context.Background(), c.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, rejected.VerificationStatus)

	_, err = svc.RejectCompany(context.Background(), c.ID, admin)
	requireCode(t, err, CodeAlreadyExists, http.StatusBadRequest)

	_, err = svc.VerifyCompany(context.Background(), uuid.New(), admin)
	requireCode(t, err, CodeNotFound, http.StatusNotFound)
}

func TestListCompanies(t *testing.T) {
	svc, store := newTestService(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i, name := range []string{"Alpha", "Beta", "Gamma"} {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		c, err := svc.CreateCompany(context.Background(), validInput(name), uuid.New())
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	_, err := svc.CreateCompany(context.Background(), validInput("Pending Co"), uuid.New())
	require.NoError(t, err)
	for _, id := range ids {
		_, err := svc.VerifyCompany(context.Background(), id, uuid.New())
		require.NoError(t, err)
	}

	res, err := svc.ListCompanies(context.Background(), ListFilters{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.True(t, res.HasMore)
	require.Len(t, res.Companies, 2)
	assert.Equal(t, "Gamma", res.Companies[0].Name)

	res, err = svc.ListCompanies(context.Background(), ListFilters{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.False(t, res.HasMore)
	require.Len(t, res.Companies, 1)

	calls := store.listCalls
	_, err = svc.ListCompanies(context.Background(), ListFilters{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, calls, store.listCalls)

	res, err = svc.ListCompanies(context.Background(), ListFilters{VerificationStatus: models.VerificationPending})
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "Pending Co", res.Companies[0].Name)
}

func TestCheckSubscriptionLimits(t *testing.T) {
	svc, store := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)

	store.events[c.ID] = 2
	ok, err := svc.CheckSubscriptionLimits(context.Background(), c.ID, models.ActionCreateEvent)
	require.NoError(t, err)
	assert.True(t, ok)

	store.events[c.ID] = 3
	ok, err = svc.CheckSubscriptionLimits(context.Background(), c.ID, models.ActionCreateEvent)
	require.NoError(t, err)
	assert.False(t, ok)

	// free tier allows one member and the owner already fills it
	ok, err = svc.CheckSubscriptionLimits(context.Background(), c.ID, models.ActionAddTeamMember)
	require.NoError(t, err)
	assert.False(t, ok)

	store.companies[c.ID].SubscriptionTier = models.TierEnterprise
	svc.InvalidateCache(context.Background())
	store.events[c.ID] = 10000
	ok, err = svc.CheckSubscriptionLimits(context.Background(), c.ID, models.ActionCreateEvent)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.CheckSubscriptionLimits(context.Background(), c.ID, models.ActionAddTeamMember)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckSubscriptionLimits_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CheckSubscriptionLimits(context.Background(), uuid.New(), models.ActionCreateEvent)
	requireCode(t, err, CodeNotFound, http.StatusNotFound)

	_, err = svc.CheckSubscriptionLimits(context.Background(), uuid.New(), models.LimitAction("launch_rocket"))
	requireCode(t, err, CodeInvalidDocuments, http.StatusBadRequest)
}

func TestIncrementCounter(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), uuid.New())
	require.NoError(t, err)
	_, err = svc.GetCompanyByID(context.Background(), c.ID)
	require.NoError(t, err)

	require.NoError(t, svc.IncrementCounter(context.Background(), c.ID, models.CounterEvents))
	got, err := svc.GetCompanyByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalEvents)
}

func TestIsActiveMember(t *testing.T) {
	svc, _ := newTestService(t)
	owner := uuid.New()
	c, err := svc.CreateCompany(context.Background(), validInput("Acme"), owner)
	require.NoError(t, err)

	ok, err := svc.IsActiveMember(context.Background(), c.ID, owner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsActiveMember(context.Background(), c.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2026, 3, 17, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)
}
