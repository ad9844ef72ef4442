package subscriptions

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/companies"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/metrics"
)

const (
	// ExpiryWarningDays is the window in which a subscription counts as expiring soon.
	ExpiryWarningDays = 7
	defaultTermLength = 365 * 24 * time.Hour
)

// Companies is the company read path. Writes made here are followed by InvalidateCache.
type Companies interface {
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	InvalidateCache(ctx context.Context)
}

// State is the full set of subscription columns written by an update.
type State struct {
	Tier      models.Tier
	Status    models.SubscriptionStatus
	StartedAt *time.Time
	ExpiresAt *time.Time
}

// Expiring is an active paid subscription close to its end date.
type Expiring struct {
	CompanyID uuid.UUID   `json:"company_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Tier      models.Tier `json:"tier"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Store persists subscription state and answers usage counts.
type Store interface {
	CountEventsSince(ctx context.Context, companyID uuid.UUID, since time.Time) (int, error)
	CountActiveMembers(ctx context.Context, companyID uuid.UUID) (int, error)
	// SetState writes all subscription columns. It reports false when no active company has the ID.
	SetState(ctx context.Context, companyID uuid.UUID, s State) (bool, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]Expiring, error)
}

// Usage is a company's consumption against its tier limits. Remaining counts are nil when unlimited.
type Usage struct {
	CompanyID               uuid.UUID                 `json:"company_id"`
	Tier                    models.Tier               `json:"tier"`
	Status                  models.SubscriptionStatus `json:"status"`
	Limits                  models.TierLimits         `json:"limits"`
	EventsThisMonth         int                       `json:"events_this_month"`
	TeamMembers             int                       `json:"team_members"`
	CanCreateEvent          bool                      `json:"can_create_event"`
	CanAddTeamMember        bool                      `json:"can_add_team_member"`
	EventsRemaining         *int                      `json:"events_remaining"`
	TeamMembersRemaining    *int                      `json:"team_members_remaining"`
	SubscriptionExpiresAt   *time.Time                `json:"subscription_expires_at,omitempty"`
	DaysUntilExpiry         *int                      `json:"days_until_expiry,omitempty"`
	SubscriptionExpiresSoon bool                      `json:"subscription_expires_soon"`
}

// LimitDecision answers whether an action fits the current tier.
type LimitDecision struct {
	Allowed         bool               `json:"allowed"`
	Reason          string             `json:"reason,omitempty"`
	UpgradeRequired bool               `json:"upgrade_required"`
	CurrentUsage    int                `json:"current_usage"`
	Limit           *int               `json:"limit"`
	Action          models.LimitAction `json:"action"`
}

// Recommendation suggests the next tier for a company that outgrew its current one.
type Recommendation struct {
	CurrentTier     models.Tier       `json:"current_tier"`
	RecommendedTier models.Tier       `json:"recommended_tier"`
	Reason          string            `json:"reason"`
	Limits          models.TierLimits `json:"limits"`
}

// Service computes usage and manages tiers.
type Service struct {
	store     Store
	companies Companies
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a subscription service.
func NewService(store Store, companies Companies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, companies: companies, logger: logger, now: time.Now}
}

func (s *Service) company(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	c, err := s.companies.GetCompanyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, companies.NewError(companies.CodeNotFound, http.StatusNotFound, "company not found")
	}
	return c, nil
}

// GetSubscriptionUsage reports monthly event usage, active team size and expiry status.
func (s *Service) GetSubscriptionUsage(ctx context.Context, companyID uuid.UUID) (*Usage, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	events, err := s.store.CountEventsSince(ctx, companyID, companies.MonthStart(now))
	if err != nil {
		s.logger.Error("event usage count failed", zap.String("company_id", companyID.String()), zap.Error(err))
		return nil, storageError("failed to count events", err)
	}
	members, err := s.store.CountActiveMembers(ctx, companyID)
	if err != nil {
		s.logger.Error("member usage count failed", zap.String("company_id", companyID.String()), zap.Error(err))
		return nil, storageError("failed to count team members", err)
	}

	limits := c.SubscriptionTier.Limits()
	u := &Usage{
		CompanyID:             companyID,
		Tier:                  c.SubscriptionTier,
		Status:                c.SubscriptionStatus,
		Limits:                limits,
		EventsThisMonth:       events,
		TeamMembers:           members,
		CanCreateEvent:        within(events, limits.EventsPerMonth),
		CanAddTeamMember:      within(members, limits.TeamMembers),
		EventsRemaining:       remaining(events, limits.EventsPerMonth),
		TeamMembersRemaining:  remaining(members, limits.TeamMembers),
		SubscriptionExpiresAt: c.SubscriptionExpiresAt,
	}
	if c.SubscriptionExpiresAt != nil {
		days := DaysUntil(*c.SubscriptionExpiresAt, now)
		u.DaysUntilExpiry = &days
		u.SubscriptionExpiresSoon = days > 0 && days <= ExpiryWarningDays
	}
	return u, nil
}

// CheckSubscriptionLimit decides whether action is allowed and explains a denial.
func (s *Service) CheckSubscriptionLimit(ctx context.Context, companyID uuid.UUID, action models.LimitAction) (*LimitDecision, error) {
	if !action.Valid() {
		return nil, companies.NewError(companies.CodeInvalidDocuments, http.StatusBadRequest,
			fmt.Sprintf("unknown action %q", action))
	}
	u, err := s.GetSubscriptionUsage(ctx, companyID)
	if err != nil {
		return nil, err
	}

	d := &LimitDecision{Action: action}
	var noun string
	switch action {
	case models.ActionCreateEvent:
		d.Allowed, d.CurrentUsage, d.Limit = u.CanCreateEvent, u.EventsThisMonth, u.Limits.EventsPerMonth
		noun = "monthly event"
	case models.ActionAddTeamMember:
		d.Allowed, d.CurrentUsage, d.Limit = u.CanAddTeamMember, u.TeamMembers, u.Limits.TeamMembers
		noun = "team member"
	}
	if !d.Allowed {
		d.UpgradeRequired = true
		d.Reason = fmt.Sprintf("%s limit reached (%d/%d) on the %s tier", noun, d.CurrentUsage, *d.Limit, u.Tier)
	}
	metrics.Inc(metrics.LimitChecks, string(action), fmt.Sprint(d.Allowed))
	return d, nil
}

// RequireLimit returns SUBSCRIPTION_LIMIT_REACHED when action is not allowed.
func (s *Service) RequireLimit(ctx context.Context, companyID uuid.UUID, action models.LimitAction) error {
	d, err := s.CheckSubscriptionLimit(ctx, companyID, action)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return companies.LimitReached(d.Reason)
	}
	return nil
}

// UpdateSubscriptionTier moves the company to tier and marks the subscription active. Paid tiers without an
// explicit expiry run for one year. The first move off the free tier stamps the start date.
func (s *Service) UpdateSubscriptionTier(ctx context.Context, companyID uuid.UUID, tier models.Tier, expiresAt *time.Time) (*models.Company, error) {
	if !tier.Valid() {
		return nil, companies.NewError(companies.CodeInvalidDocuments, http.StatusBadRequest,
			fmt.Sprintf("unknown tier %q", tier))
	}
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	next := State{
		Tier:      tier,
		Status:    models.SubscriptionActive,
		StartedAt: c.SubscriptionStartedAt,
		ExpiresAt: expiresAt,
	}
	if next.ExpiresAt == nil && tier != models.TierFree {
		exp := now.Add(defaultTermLength)
		next.ExpiresAt = &exp
	}
	if c.SubscriptionTier == models.TierFree && tier != models.TierFree && c.SubscriptionStartedAt == nil {
		next.StartedAt = &now
	}
	return s.write(ctx, companyID, next, "tier updated")
}

// CancelSubscription drops the company back to the free tier.
func (s *Service) CancelSubscription(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, companyID, State{
		Tier:      models.TierFree,
		Status:    models.SubscriptionCancelled,
		StartedAt: c.SubscriptionStartedAt,
	}, "subscription cancelled")
}

// SuspendSubscription marks the subscription suspended, keeping tier and expiry.
func (s *Service) SuspendSubscription(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	return s.setStatus(ctx, companyID, models.SubscriptionSuspended)
}

// ReactivateSubscription marks the subscription active again.
func (s *Service) ReactivateSubscription(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	return s.setStatus(ctx, companyID, models.SubscriptionActive)
}

func (s *Service) setStatus(ctx context.Context, companyID uuid.UUID, status models.SubscriptionStatus) (*models.Company, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, companyID, State{
		Tier:      c.SubscriptionTier,
		Status:    status,
		StartedAt: c.SubscriptionStartedAt,
		ExpiresAt: c.SubscriptionExpiresAt,
	}, "subscription status changed")
}

func (s *Service) write(ctx context.Context, companyID uuid.UUID, st State, msg string) (*models.Company, error) {
	ok, err := s.store.SetState(ctx, companyID, st)
	if err != nil {
		s.logger.Error("subscription update failed", zap.String("company_id", companyID.String()), zap.Error(err))
		return nil, storageError("failed to update subscription", err)
	}
	if !ok {
		return nil, companies.NewError(companies.CodeNotFound, http.StatusNotFound, "company not found")
	}
	s.companies.InvalidateCache(ctx)
	s.logger.Info(msg,
		zap.String("company_id", companyID.String()),
		zap.String("tier", string(st.Tier)),
		zap.String("status", string(st.Status)))
	return s.company(ctx, companyID)
}

// GetExpiringSubscriptions lists active paid subscriptions ending within the next days days (7 when days <= 0).
func (s *Service) GetExpiringSubscriptions(ctx context.Context, days int) ([]Expiring, error) {
	if days <= 0 {
		days = ExpiryWarningDays
	}
	now := s.now().UTC()
	list, err := s.store.ListExpiring(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		s.logger.Error("expiring subscriptions lookup failed", zap.Error(err))
		return nil, storageError("failed to list expiring subscriptions", err)
	}
	if list == nil {
		list = []Expiring{}
	}
	return list, nil
}

// GetRecommendedUpgrade suggests the next tier when the company is at either limit. It returns nil when no
// upgrade is warranted or the company is on the top tier.
func (s *Service) GetRecommendedUpgrade(ctx context.Context, companyID uuid.UUID) (*Recommendation, error) {
	u, err := s.GetSubscriptionUsage(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if u.CanCreateEvent && u.CanAddTeamMember {
		return nil, nil
	}
	next := u.Tier.Next()
	if next == "" {
		return nil, nil
	}
	reason := "team member limit reached"
	if !u.CanCreateEvent {
		reason = "monthly event limit reached"
	}
	return &Recommendation{
		CurrentTier:     u.Tier,
		RecommendedTier: next,
		Reason:          reason,
		Limits:          next.Limits(),
	}, nil
}

// DaysUntil returns the whole days from now until t, rounded up.
func DaysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

func within(used int, limit *int) bool {
	return limit == nil || used < *limit
}

func remaining(used int, limit *int) *int {
	if limit == nil {
		return nil
	}
	r := *limit - used
	if r < 0 {
		r = 0
	}
	return &r
}

func storageError(msg string, err error) *companies.CompanyError {
	return &companies.CompanyError{
		Message:    msg,
		Code:       companies.CodeDatabase,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
