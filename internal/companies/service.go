package companies

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/cache"
	"github.com/eventhive/backend/pkg/metrics"
)

// CacheTTL is how long company reads stay cached.
const CacheTTL = 5 * time.Minute

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Store is the persistence the company service needs. Lookups return (nil, nil) when nothing matches.
type Store interface {
	Create(ctx context.Context, c *models.Company) error
	// Delete removes the row permanently. Deleting a missing row is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetBySlug(ctx context.Context, slug string) (*models.Company, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]string) (*models.Company, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, f ListFilters) ([]models.Company, int, error)
	SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, adminID uuid.UUID, at time.Time) (*models.Company, error)
	AddMember(ctx context.Context, m *models.CompanyMember) error
	ListMembers(ctx context.Context, companyID uuid.UUID) ([]models.CompanyMember, error)
	CountEventsSince(ctx context.Context, companyID uuid.UUID, since time.Time) (int, error)
	CountActiveMembers(ctx context.Context, companyID uuid.UUID) (int, error)
	IncrementCounter(ctx context.Context, companyID uuid.UUID, counter models.CompanyCounter) error
}

// CreateInput is the profile submitted when a company registers.
type CreateInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Website     string `json:"website"`
	LegalName   string `json:"legal_name"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	LogoURL     string `json:"logo_url"`
	Industry    string `json:"industry"`
	CompanySize string `json:"company_size"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Country     string `json:"country"`
	LinkedInURL string `json:"linkedin_url"`
	TwitterURL  string `json:"twitter_url"`
}

// ListFilters narrows listCompanies. Zero values mean "no filter" except VerificationStatus, which defaults to
// verified, and Limit, which defaults to 20.
type ListFilters struct {
	Search             string                    `json:"search,omitempty"`
	Industry           string                    `json:"industry,omitempty"`
	CompanySize        string                    `json:"company_size,omitempty"`
	VerificationStatus models.VerificationStatus `json:"verification_status,omitempty"`
	Limit              int                       `json:"limit"`
	Offset             int                       `json:"offset"`
}

// ListResult is one page of companies.
type ListResult struct {
	Companies []models.Company `json:"companies"`
	Total     int              `json:"total"`
	HasMore   bool             `json:"has_more"`
}

// protectedFields are never written by UpdateCompany.
var protectedFields = map[string]struct{}{
	"id":                  {},
	"created_at":          {},
	"created_by":          {},
	"verification_status": {},
	"verified_at":         {},
	"verified_by":         {},
	"slug":                {},
}

// UpdatableFields are the profile columns UpdateCompany may write.
var UpdatableFields = map[string]struct{}{
	"name": {}, "legal_name": {}, "description": {}, "email": {}, "phone": {}, "website": {},
	"logo_url": {}, "industry": {}, "company_size": {}, "address": {}, "city": {}, "country": {},
	"linkedin_url": {}, "twitter_url": {},
}

var requiredFields = []string{"name", "email", "website"}

// Service implements company registration, lookup, verification and quota checks.
type Service struct {
	store  Store
	cache  cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a company service. A nil cache gets a private memory cache.
func NewService(store Store, c cache.Cache, logger *zap.Logger) *Service {
	if c == nil {
		c = cache.NewMemory(CacheTTL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: c, logger: logger, now: time.Now}
}

// CreateCompany registers a company with a slug derived from its name and makes userID its owner.
// If the owner membership cannot be written the company row is removed again.
func (s *Service) CreateCompany(ctx context.Context, in CreateInput, userID uuid.UUID) (*models.Company, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Website = strings.TrimSpace(in.Website)
	if in.Name == "" || in.Email == "" || in.Website == "" {
		return nil, invalid("name, email and website are required")
	}
	slug := GenerateSlug(in.Name)
	if slug == "" {
		return nil, invalid("company name must contain letters or digits")
	}

	existing, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		s.logger.Error("company slug lookup failed", zap.String("slug", slug), zap.Error(err))
		return nil, dbError("failed to check company slug", err)
	}
	if existing != nil {
		return nil, NewError(CodeAlreadyExists, http.StatusConflict, "a company with this name already exists")
	}

	now := s.now().UTC()
	company := &models.Company{
		ID:                 uuid.New(),
		Name:               in.Name,
		Slug:               slug,
		LegalName:          in.LegalName,
		Description:        in.Description,
		Email:              in.Email,
		Phone:              in.Phone,
		Website:            in.Website,
		LogoURL:            in.LogoURL,
		Industry:           in.Industry,
		CompanySize:        in.CompanySize,
		Address:            in.Address,
		City:               in.City,
		Country:            in.Country,
		LinkedInURL:        in.LinkedInURL,
		TwitterURL:         in.TwitterURL,
		VerificationStatus: models.VerificationPending,
		SubscriptionTier:   models.TierFree,
		SubscriptionStatus: models.SubscriptionActive,
		Status:             models.CompanyStatusActive,
		CreatedBy:          userID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, company); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			return nil, NewError(CodeAlreadyExists, http.StatusConflict, "a company with this name already exists")
		}
		s.logger.Error("company insert failed", zap.String("slug", slug), zap.Error(err))
		return nil, dbError("failed to create company", err)
	}

	member := &models.CompanyMember{
		ID:        uuid.New(),
		CompanyID: company.ID,
		UserID:    userID,
		Role:      models.MemberRoleOwner,
		Status:    models.MemberStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.AddMember(ctx, member); err != nil {
		s.logger.Error("owner membership insert failed, removing company",
			zap.String("company_id", company.ID.String()), zap.Error(err))
		if delErr := s.store.Delete(ctx, company.ID); delErr != nil {
			s.logger.Error("company rollback failed",
				zap.String("company_id", company.ID.String()), zap.Error(delErr))
			return nil, &CompanyError{
				Message:    "failed to add company owner and to remove the company",
				Code:       CodeAlreadyExists,
				StatusCode: http.StatusInternalServerError,
				Err:        errors.Join(err, delErr),
			}
		}
		return nil, &CompanyError{
			Message:    "failed to add company owner",
			Code:       CodeAlreadyExists,
			StatusCode: http.StatusInternalServerError,
			Err:        err,
		}
	}

	s.InvalidateCache(ctx)
	s.logger.Info("company created", zap.String("company_id", company.ID.String()), zap.String("slug", slug))
	return company, nil
}

// GetCompanyByID returns the company or nil when it does not exist.
func (s *Service) GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	key := "company:id:" + id.String()
	var cached models.Company
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("company lookup failed", zap.String("company_id", id.String()), zap.Error(err))
		return nil, dbError("failed to load company", err)
	}
	if c == nil {
		return nil, nil
	}
	s.cacheSet(ctx, key, c)
	return c, nil
}

// GetCompanyBySlug returns the company or nil when no active company has the slug.
func (s *Service) GetCompanyBySlug(ctx context.Context, slug string) (*models.Company, error) {
	key := "company:slug:" + slug
	var cached models.Company
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	c, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		s.logger.Error("company lookup failed", zap.String("slug", slug), zap.Error(err))
		return nil, dbError("failed to load company", err)
	}
	// Deleted companies keep their slug reserved but are not readable.
	if c == nil || c.Status == models.CompanyStatusDeleted {
		return nil, nil
	}
	s.cacheSet(ctx, key, c)
	return c, nil
}

// UpdateCompany applies a partial profile update. Identity, audit, verification and slug fields are ignored.
func (s *Service) UpdateCompany(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (*models.Company, error) {
	fields := make(map[string]string, len(patch))
	for k, v := range patch {
		if _, skip := protectedFields[k]; skip {
			continue
		}
		if _, ok := UpdatableFields[k]; !ok {
			return nil, invalid(fmt.Sprintf("field %q cannot be updated", k))
		}
		str, ok := v.(string)
		if !ok {
			return nil, invalid(fmt.Sprintf("field %q must be a string", k))
		}
		fields[k] = strings.TrimSpace(str)
	}
	for _, k := range requiredFields {
		if v, ok := fields[k]; ok && v == "" {
			return nil, invalid(k + " cannot be empty")
		}
	}

	c, err := s.store.Update(ctx, id, fields)
	if err != nil {
		s.logger.Error("company update failed", zap.String("company_id", id.String()), zap.Error(err))
		return nil, dbError("failed to update company", err)
	}
	if c == nil {
		return nil, notFound()
	}
	s.InvalidateCache(ctx)
	return c, nil
}

// DeleteCompany soft-deletes the company.
func (s *Service) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		s.logger.Error("company delete failed", zap.String("company_id", id.String()), zap.Error(err))
		return dbError("failed to delete company", err)
	}
	if !ok {
		return notFound()
	}
	s.InvalidateCache(ctx)
	s.logger.Info("company deleted", zap.String("company_id", id.String()))
	return nil
}

// ListCompanies returns one page of active companies, newest first.
func (s *Service) ListCompanies(ctx context.Context, f ListFilters) (*ListResult, error) {
	f = normalizeFilters(f)
	key := "company:list:" + f.cacheKey()
	var cached ListResult
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	list, total, err := s.store.List(ctx, f)
	if err != nil {
		s.logger.Error("company list failed", zap.Error(err))
		return nil, dbError("failed to list companies", err)
	}
	if list == nil {
		list = []models.Company{}
	}
	res := &ListResult{
		Companies: list,
		Total:     total,
		HasMore:   f.Offset+len(list) < total,
	}
	s.cacheSet(ctx, key, res)
	return res, nil
}

// VerifyCompany marks the company verified by adminID.
func (s *Service) VerifyCompany(ctx context.Context, id, adminID uuid.UUID) (*models.Company, error) {
	return s.setVerification(ctx, id, adminID, models.VerificationVerified)
}

// RejectCompany marks the company rejected by adminID.
func (s *Service) RejectCompany(ctx context.Context, id, adminID uuid.UUID) (*models.Company, error) {
	return s.setVerification(ctx, id, adminID, models.VerificationRejected)
}

func (s *Service) setVerification(ctx context.Context, id, adminID uuid.UUID, status models.VerificationStatus) (*models.Company, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("company lookup failed", zap.String("company_id", id.String()), zap.Error(err))
		return nil, dbError("failed to load company", err)
	}
	if current == nil {
		return nil, notFound()
	}
	if current.VerificationStatus == status {
		return nil, NewError(CodeAlreadyExists, http.StatusBadRequest, "company is already "+string(status))
	}

	c, err := s.store.SetVerification(ctx, id, status, adminID, s.now().UTC())
	if err != nil {
		s.logger.Error("company verification update failed",
			zap.String("company_id", id.String()), zap.String("status", string(status)), zap.Error(err))
		return nil, dbError("failed to update verification status", err)
	}
	if c == nil {
		return nil, notFound()
	}
	s.InvalidateCache(ctx)
	s.logger.Info("company verification changed",
		zap.String("company_id", id.String()),
		zap.String("status", string(status)),
		zap.String("admin_id", adminID.String()))
	return c, nil
}

// CheckSubscriptionLimits reports whether the company's tier still allows action.
func (s *Service) CheckSubscriptionLimits(ctx context.Context, id uuid.UUID, action models.LimitAction) (bool, error) {
	if !action.Valid() {
		return false, invalid(fmt.Sprintf("unknown action %q", action))
	}
	c, err := s.GetCompanyByID(ctx, id)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, notFound()
	}
	limits := c.SubscriptionTier.Limits()

	var (
		quota *int
		count int
	)
	switch action {
	case models.ActionCreateEvent:
		quota = limits.EventsPerMonth
		if quota == nil {
			break
		}
		count, err = s.store.CountEventsSince(ctx, id, MonthStart(s.now()))
	case models.ActionAddTeamMember:
		quota = limits.TeamMembers
		if quota == nil {
			break
		}
		count, err = s.store.CountActiveMembers(ctx, id)
	}
	if err != nil {
		s.logger.Error("usage count failed",
			zap.String("company_id", id.String()), zap.String("action", string(action)), zap.Error(err))
		return false, dbError("failed to count usage", err)
	}
	allowed := quota == nil || count < *quota
	metrics.Inc(metrics.LimitChecks, string(action), fmt.Sprint(allowed))
	return allowed, nil
}

// IncrementCounter bumps one of the denormalized totals on the company row.
func (s *Service) IncrementCounter(ctx context.Context, id uuid.UUID, counter models.CompanyCounter) error {
	if err := s.store.IncrementCounter(ctx, id, counter); err != nil {
		s.logger.Error("company counter update failed",
			zap.String("company_id", id.String()), zap.String("counter", string(counter)), zap.Error(err))
		return dbError("failed to update company counter", err)
	}
	s.InvalidateCache(ctx)
	return nil
}

// ListMembers returns the company's members, owner first.
func (s *Service) ListMembers(ctx context.Context, id uuid.UUID) ([]models.CompanyMember, error) {
	members, err := s.store.ListMembers(ctx, id)
	if err != nil {
		s.logger.Error("company members lookup failed", zap.String("company_id", id.String()), zap.Error(err))
		return nil, dbError("failed to load company members", err)
	}
	return members, nil
}

// IsActiveMember reports whether userID holds an active membership in the company.
func (s *Service) IsActiveMember(ctx context.Context, companyID, userID uuid.UUID) (bool, error) {
	members, err := s.ListMembers(ctx, companyID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.UserID == userID && m.Status == models.MemberStatusActive {
			return true, nil
		}
	}
	return false, nil
}

// InvalidateCache drops every cached company read. Cache failures are logged, never returned.
func (s *Service) InvalidateCache(ctx context.Context) {
	if err := s.cache.Flush(ctx); err != nil {
		s.logger.Warn("company cache flush failed", zap.Error(err))
	}
}

func (s *Service) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("company cache read failed", zap.String("key", key), zap.Error(err))
		hit = false
	}
	if hit {
		metrics.Inc(metrics.CacheLookups, "hit")
	} else {
		metrics.Inc(metrics.CacheLookups, "miss")
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, v interface{}) {
	if err := s.cache.Set(ctx, key, v, CacheTTL); err != nil {
		s.logger.Warn("company cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func normalizeFilters(f ListFilters) ListFilters {
	f.Search = strings.TrimSpace(f.Search)
	if f.VerificationStatus == "" {
		f.VerificationStatus = models.VerificationVerified
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (f ListFilters) cacheKey() string {
	parts := []string{
		"search=" + strings.ToLower(f.Search),
		"industry=" + f.Industry,
		"size=" + f.CompanySize,
		"status=" + string(f.VerificationStatus),
		fmt.Sprintf("limit=%d", f.Limit),
		fmt.Sprintf("offset=%d", f.Offset),
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}
