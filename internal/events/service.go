package events

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/companies"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/internal/moderation"
)

const (
	defaultPublicLimit = 20
	maxPublicLimit     = 100
)

// Store persists listings.
type Store interface {
	Create(ctx context.Context, l *models.Listing) error
	Get(ctx context.Context, kind models.ListingKind, id uuid.UUID) (*models.Listing, error)
	CountDuplicates(ctx context.Context, kind models.ListingKind, companyID uuid.UUID, date time.Time, title string, excludeID uuid.UUID) (int, error)
	ListByCompany(ctx context.Context, kind models.ListingKind, companyID uuid.UUID) ([]models.Listing, error)
	ListPublic(ctx context.Context, kind models.ListingKind, limit, offset int) ([]models.Listing, error)
}

// Companies is what listing creation needs from the company service.
type Companies interface {
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, counter models.CompanyCounter) error
}

// Limits gates actions on the company's subscription tier.
type Limits interface {
	RequireLimit(ctx context.Context, companyID uuid.UUID, action models.LimitAction) error
}

// Moderator runs the moderation side of a submission.
type Moderator interface {
	LogSubmission(ctx context.Context, l *models.Listing, notes string)
	RunAutomatedChecks(ctx context.Context, l *models.Listing) (*moderation.CheckResult, error)
	ShouldAutoApprove(ctx context.Context, companyID uuid.UUID) (bool, error)
	AutoApprove(ctx context.Context, l *models.Listing) (*models.Listing, error)
}

// CreateInput is a new event or hackathon. Date is YYYY-MM-DD.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
}

// Submission is the outcome of Create: the stored listing and the checks it went through.
type Submission struct {
	Listing      *models.Listing         `json:"listing"`
	Checks       *moderation.CheckResult `json:"checks"`
	AutoApproved bool                    `json:"auto_approved"`
}

// Service creates and lists events and hackathons.
type Service struct {
	store     Store
	companies Companies
	limits    Limits
	moderator Moderator
	logger    *zap.Logger
}

// NewService creates a listings service.
func NewService(store Store, companies Companies, limits Limits, moderator Moderator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, companies: companies, limits: limits, moderator: moderator, logger: logger}
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, moderation.Invalid(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return &t, nil
}

// Create stores a pending listing for the company, logs the submission and runs the automated checks. Verified
// companies on an auto-approval tier get the listing approved straight away when every check passes. Events
// count against the monthly quota; hackathons do not.
func (s *Service) Create(ctx context.Context, kind models.ListingKind, companyID uuid.UUID, in CreateInput, userID uuid.UUID) (*Submission, error) {
	if !kind.Valid() {
		return nil, moderation.Invalid(fmt.Sprintf("unknown listing kind %q", kind))
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, moderation.Invalid("title is required")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	c, err := s.companies.GetCompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, companies.NewError(companies.CodeNotFound, http.StatusNotFound, "company not found")
	}
	if kind == models.KindEvent {
		if err := s.limits.RequireLimit(ctx, companyID, models.ActionCreateEvent); err != nil {
			return nil, err
		}
	}
	if date != nil {
		n, err := s.store.CountDuplicates(ctx, kind, companyID, *date, title, uuid.Nil)
		if err != nil {
			s.logger.Error("duplicate lookup failed", zap.String("company_id", companyID.String()), zap.Error(err))
			return nil, storageError(err)
		}
		if n > 0 {
			return nil, moderation.Duplicate(fmt.Sprintf("a %s titled %q is already scheduled on %s",
				kind, title, date.Format(time.DateOnly)))
		}
	}

	cid := companyID
	l := &models.Listing{
		Kind:           kind,
		Title:          title,
		Description:    in.Description,
		Date:           date,
		Location:       in.Location,
		Category:       in.Category,
		ImageURL:       in.ImageURL,
		CompanyID:      &cid,
		CreatedBy:      userID,
		ApprovalStatus: models.ApprovalPending,
	}
	if err := s.store.Create(ctx, l); err != nil {
		s.logger.Error("listing insert failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, storageError(err)
	}
	s.moderator.LogSubmission(ctx, l, "")
	s.countCreated(ctx, l)

	checks, err := s.moderator.RunAutomatedChecks(ctx, l)
	if err != nil {
		// the listing stays pending for manual review
		s.logger.Warn("automated checks unavailable", zap.String("id", l.ID.String()), zap.Error(err))
		return &Submission{Listing: l}, nil
	}
	sub := &Submission{Listing: l, Checks: checks}
	if !checks.Passed {
		return sub, nil
	}
	auto, err := s.moderator.ShouldAutoApprove(ctx, companyID)
	if err != nil || !auto {
		return sub, nil
	}
	approved, err := s.moderator.AutoApprove(ctx, l)
	if err != nil {
		s.logger.Warn("auto approval failed", zap.String("id", l.ID.String()), zap.Error(err))
		return sub, nil
	}
	sub.Listing = approved
	sub.AutoApproved = true
	return sub, nil
}

func (s *Service) countCreated(ctx context.Context, l *models.Listing) {
	counter := models.CounterEvents
	if l.Kind == models.KindHackathon {
		counter = models.CounterHackathons
	}
	if err := s.companies.IncrementCounter(ctx, *l.CompanyID, counter); err != nil {
		s.logger.Warn("company counter update failed",
			zap.String("company_id", l.CompanyID.String()), zap.String("counter", string(counter)), zap.Error(err))
	}
}

// Get returns a listing or MODERATION_NOT_FOUND.
func (s *Service) Get(ctx context.Context, kind models.ListingKind, id uuid.UUID) (*models.Listing, error) {
	if !kind.Valid() {
		return nil, moderation.Invalid(fmt.Sprintf("unknown listing kind %q", kind))
	}
	l, err := s.store.Get(ctx, kind, id)
	if err != nil {
		s.logger.Error("listing lookup failed", zap.String("id", id.String()), zap.Error(err))
		return nil, storageError(err)
	}
	if l == nil {
		return nil, moderation.NotFound(string(kind) + " not found")
	}
	return l, nil
}

// ListByCompany returns every listing of the company regardless of approval status.
func (s *Service) ListByCompany(ctx context.Context, kind models.ListingKind, companyID uuid.UUID) ([]models.Listing, error) {
	if !kind.Valid() {
		return nil, moderation.Invalid(fmt.Sprintf("unknown listing kind %q", kind))
	}
	list, err := s.store.ListByCompany(ctx, kind, companyID)
	if err != nil {
		s.logger.Error("company listings lookup failed", zap.String("company_id", companyID.String()), zap.Error(err))
		return nil, storageError(err)
	}
	if list == nil {
		list = []models.Listing{}
	}
	return list, nil
}

// ListPublic returns upcoming approved listings.
func (s *Service) ListPublic(ctx context.Context, kind models.ListingKind, limit, offset int) ([]models.Listing, error) {
	if !kind.Valid() {
		return nil, moderation.Invalid(fmt.Sprintf("unknown listing kind %q", kind))
	}
	if limit <= 0 {
		limit = defaultPublicLimit
	}
	if limit > maxPublicLimit {
		limit = maxPublicLimit
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.store.ListPublic(ctx, kind, limit, offset)
	if err != nil {
		s.logger.Error("public listings lookup failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, storageError(err)
	}
	if list == nil {
		list = []models.Listing{}
	}
	return list, nil
}

func storageError(err error) *moderation.ModerationError {
	return &moderation.ModerationError{
		Message:    "listing storage failure",
		Code:       moderation.CodeDatabase,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
