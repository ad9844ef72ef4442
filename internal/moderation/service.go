package moderation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/metrics"
)

// Minimum field lengths enforced by automated checks.
const (
	minTitleLen       = 5
	minDescriptionLen = 100
	minLocationLen    = 2
)

// Transition is the approval state written by a moderation decision.
type Transition struct {
	// From is the status the listing must still have for the write to apply.
	From            models.ApprovalStatus
	Status          models.ApprovalStatus
	RejectionReason string
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
}

// ListingStore reads and transitions events and hackathons. Get returns (nil, nil) when nothing matches;
// SetApproval does the same when the listing is gone or no longer in t.From.
type ListingStore interface {
	Get(ctx context.Context, kind models.ListingKind, id uuid.UUID) (*models.Listing, error)
	SetApproval(ctx context.Context, kind models.ListingKind, id uuid.UUID, t Transition) (*models.Listing, error)
	// CountDuplicates counts listings of the company on date whose title matches case-insensitively,
	// excluding excludeID.
	CountDuplicates(ctx context.Context, kind models.ListingKind, companyID uuid.UUID, date time.Time, title string, excludeID uuid.UUID) (int, error)
}

// LogStore persists the moderation audit trail.
type LogStore interface {
	Insert(ctx context.Context, l *models.ModerationLog) error
	// List returns the entries for a listing, newest first.
	List(ctx context.Context, kind models.ListingKind, listingID uuid.UUID) ([]models.ModerationLog, error)
}

// CompanyLookup resolves the company behind a listing. It returns (nil, nil) for unknown companies.
type CompanyLookup interface {
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// Decision is published after every successful moderation transition.
type Decision struct {
	Kind        models.ListingKind      `json:"kind"`
	ListingID   uuid.UUID               `json:"listing_id"`
	CompanyID   *uuid.UUID              `json:"company_id,omitempty"`
	Title       string                  `json:"title"`
	Action      models.ModerationAction `json:"action"`
	Status      models.ApprovalStatus   `json:"status"`
	Reason      string                  `json:"reason,omitempty"`
	PerformedBy uuid.UUID               `json:"performed_by"`
	At          time.Time               `json:"at"`
}

// Notifier receives moderation decisions. Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, d Decision) error
}

// CheckResult is the outcome of RunAutomatedChecks. Passed is true iff Issues is empty.
type CheckResult struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues"`
}

// Options configures a Service. Nil checkers fall back to the placeholder implementations.
type Options struct {
	Content  ContentChecker
	Image    ImageChecker
	Notifier Notifier
	Logger   *zap.Logger
}

// Service drives the listing approval workflow and keeps its audit log.
type Service struct {
	listings  ListingStore
	logs      LogStore
	companies CompanyLookup
	content   ContentChecker
	image     ImageChecker
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a moderation service.
func NewService(listings ListingStore, logs LogStore, companies CompanyLookup, opts Options) *Service {
	s := &Service{
		listings:  listings,
		logs:      logs,
		companies: companies,
		content:   opts.Content,
		image:     opts.Image,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if s.content == nil {
		s.content = NewStaticListChecker(nil)
	}
	if s.image == nil {
		s.image = URLShapeImageChecker{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// ApproveEvent approves a pending or changes-requested event.
func (s *Service) ApproveEvent(ctx context.Context, id, adminID uuid.UUID) (*models.Listing, error) {
	return s.Approve(ctx, models.KindEvent, id, adminID)
}

// ApproveHackathon approves a pending or changes-requested hackathon.
func (s *Service) ApproveHackathon(ctx context.Context, id, adminID uuid.UUID) (*models.Listing, error) {
	return s.Approve(ctx, models.KindHackathon, id, adminID)
}

// RejectEvent rejects an event that is not already rejected.
func (s *Service) RejectEvent(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.Listing, error) {
	return s.Reject(ctx, models.KindEvent, id, adminID, reason)
}

// RejectHackathon rejects a hackathon that is not already rejected.
func (s *Service) RejectHackathon(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.Listing, error) {
	return s.Reject(ctx, models.KindHackathon, id, adminID, reason)
}

// Approve moves a listing from pending or changes_requested to approved.
func (s *Service) Approve(ctx context.Context, kind models.ListingKind, id, adminID uuid.UUID) (*models.Listing, error) {
	return s.approve(ctx, kind, id, adminID, "")
}

func (s *Service) approve(ctx context.Context, kind models.ListingKind, id, performedBy uuid.UUID, notes string) (*models.Listing, error) {
	l, err := s.load(ctx, kind, id, performedBy)
	if err != nil {
		return nil, err
	}
	switch l.ApprovalStatus {
	case models.ApprovalApproved:
		return nil, newError(CodeAlreadyApproved, http.StatusBadRequest, fmt.Sprintf("%s is already approved", kind))
	case models.ApprovalPending, models.ApprovalChangesRequested:
	default:
		return nil, newError(CodeNotPending, http.StatusBadRequest,
			fmt.Sprintf("%s is %s and cannot be approved", kind, l.ApprovalStatus))
	}

	at := s.now().UTC()
	return s.transition(ctx, l, Transition{
		Status:     models.ApprovalApproved,
		ApprovedBy: &performedBy,
		ApprovedAt: &at,
	}, models.ActionApproved, performedBy, "", notes)
}

// Reject moves a listing to rejected. Only an already rejected listing is refused.
func (s *Service) Reject(ctx context.Context, kind models.ListingKind, id, adminID uuid.UUID, reason string) (*models.Listing, error) {
	l, err := s.load(ctx, kind, id, adminID)
	if err != nil {
		return nil, err
	}
	if l.ApprovalStatus == models.ApprovalRejected {
		return nil, newError(CodeAlreadyRejected, http.StatusBadRequest, fmt.Sprintf("%s is already rejected", kind))
	}
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, l, Transition{
		Status:          models.ApprovalRejected,
		RejectionReason: reason,
	}, models.ActionRejected, adminID, reason, "")
}

// RequestChanges sends a pending listing back to its company with the requested changes.
func (s *Service) RequestChanges(ctx context.Context, kind models.ListingKind, id, adminID uuid.UUID, changes string) (*models.Listing, error) {
	changes = strings.TrimSpace(changes)
	if changes == "" {
		return nil, newError(CodeFailedValidation, http.StatusBadRequest, "requested changes must be described")
	}
	l, err := s.load(ctx, kind, id, adminID)
	if err != nil {
		return nil, err
	}
	if l.ApprovalStatus != models.ApprovalPending {
		return nil, newError(CodeNotPending, http.StatusBadRequest,
			fmt.Sprintf("%s is %s; changes can only be requested on pending submissions", kind, l.ApprovalStatus))
	}
	return s.transition(ctx, l, Transition{
		Status:          models.ApprovalChangesRequested,
		RejectionReason: changes,
	}, models.ActionEdited, adminID, "changes requested", changes)
}

func (s *Service) load(ctx context.Context, kind models.ListingKind, id, performedBy uuid.UUID) (*models.Listing, error) {
	if !kind.Valid() {
		return nil, newError(CodeFailedValidation, http.StatusBadRequest, fmt.Sprintf("unknown listing kind %q", kind))
	}
	if performedBy == uuid.Nil {
		return nil, Unauthorized("moderation requires an authenticated moderator")
	}
	l, err := s.listings.Get(ctx, kind, id)
	if err != nil {
		s.logger.Error("listing lookup failed",
			zap.String("kind", string(kind)), zap.String("id", id.String()), zap.Error(err))
		return nil, dbError("failed to load "+string(kind), err)
	}
	if l == nil {
		return nil, newError(CodeNotFound, http.StatusNotFound, string(kind)+" not found")
	}
	return l, nil
}

func (s *Service) transition(ctx context.Context, l *models.Listing, t Transition, action models.ModerationAction, performedBy uuid.UUID, reason, notes string) (*models.Listing, error) {
	t.From = l.ApprovalStatus
	updated, err := s.listings.SetApproval(ctx, l.Kind, l.ID, t)
	if err != nil {
		s.logger.Error("listing transition failed",
			zap.String("kind", string(l.Kind)), zap.String("id", l.ID.String()),
			zap.String("status", string(t.Status)), zap.Error(err))
		return nil, dbError("failed to update "+string(l.Kind), err)
	}
	if updated == nil {
		return nil, s.lostTransition(ctx, l)
	}
	metrics.Inc(metrics.ModerationDecisions, string(l.Kind), string(action))

	s.writeLog(ctx, l.Kind, l.ID, action, performedBy, reason, notes)
	s.publish(ctx, Decision{
		Kind:        updated.Kind,
		ListingID:   updated.ID,
		CompanyID:   updated.CompanyID,
		Title:       updated.Title,
		Action:      action,
		Status:      updated.ApprovalStatus,
		Reason:      firstNonEmpty(reason, notes),
		PerformedBy: performedBy,
		At:          s.now().UTC(),
	})
	s.logger.Info("listing moderated",
		zap.String("kind", string(l.Kind)),
		zap.String("id", l.ID.String()),
		zap.String("from", string(l.ApprovalStatus)),
		zap.String("to", string(updated.ApprovalStatus)),
		zap.String("performed_by", performedBy.String()))
	return updated, nil
}

// lostTransition explains a SetApproval that matched no row: the listing was removed or moderated concurrently.
func (s *Service) lostTransition(ctx context.Context, l *models.Listing) error {
	current, err := s.listings.Get(ctx, l.Kind, l.ID)
	if err != nil {
		return dbError("failed to load "+string(l.Kind), err)
	}
	if current == nil {
		return newError(CodeNotFound, http.StatusNotFound, string(l.Kind)+" not found")
	}
	msg := fmt.Sprintf("%s was moderated concurrently and is now %s", l.Kind, current.ApprovalStatus)
	switch current.ApprovalStatus {
	case models.ApprovalApproved:
		return newError(CodeAlreadyApproved, http.StatusConflict, msg)
	case models.ApprovalRejected:
		return newError(CodeAlreadyRejected, http.StatusConflict, msg)
	default:
		return newError(CodeNotPending, http.StatusConflict, msg)
	}
}

// LogSubmission records that a listing entered the queue.
func (s *Service) LogSubmission(ctx context.Context, l *models.Listing, notes string) {
	s.writeLog(ctx, l.Kind, l.ID, models.ActionSubmitted, l.CreatedBy, "", notes)
}

// writeLog appends an audit entry. Failures are logged and never returned.
func (s *Service) writeLog(ctx context.Context, kind models.ListingKind, id uuid.UUID, action models.ModerationAction, performedBy uuid.UUID, reason, notes string) {
	entry := models.NewModerationLog(kind, id, action, performedBy, reason, notes)
	entry.ID = uuid.New()
	entry.CreatedAt = s.now().UTC()
	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Error("moderation log insert failed",
			zap.String("kind", string(kind)), zap.String("id", id.String()),
			zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, d Decision) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, d); err != nil {
		s.logger.Warn("moderation decision publish failed",
			zap.String("listing_id", d.ListingID.String()), zap.Error(err))
	}
}

// CheckListing loads a listing and runs the automated checks on it.
func (s *Service) CheckListing(ctx context.Context, kind models.ListingKind, id uuid.UUID) (*CheckResult, error) {
	if !kind.Valid() {
		return nil, newError(CodeFailedValidation, http.StatusBadRequest, fmt.Sprintf("unknown listing kind %q", kind))
	}
	l, err := s.listings.Get(ctx, kind, id)
	if err != nil {
		s.logger.Error("listing lookup failed", zap.String("id", id.String()), zap.Error(err))
		return nil, dbError("failed to load "+string(kind), err)
	}
	if l == nil {
		return nil, newError(CodeNotFound, http.StatusNotFound, string(kind)+" not found")
	}
	return s.RunAutomatedChecks(ctx, l)
}

// RunAutomatedChecks validates a listing without changing it. The caller decides what to do with failures.
func (s *Service) RunAutomatedChecks(ctx context.Context, l *models.Listing) (*CheckResult, error) {
	issues := completenessIssues(l, s.now())

	textIssues, err := s.content.CheckText(ctx, l.Title+" "+l.Description)
	if err != nil {
		s.logger.Error("content check failed", zap.String("id", l.ID.String()), zap.Error(err))
		return nil, &ModerationError{
			Message: "content check unavailable", Code: CodeFailedValidation,
			StatusCode: http.StatusServiceUnavailable, Err: err,
		}
	}
	issues = append(issues, textIssues...)

	imageIssues, err := s.image.CheckImage(ctx, l.ImageURL)
	if err != nil {
		s.logger.Error("image check failed", zap.String("id", l.ID.String()), zap.Error(err))
		return nil, &ModerationError{
			Message: "image check unavailable", Code: CodeFailedValidation,
			StatusCode: http.StatusServiceUnavailable, Err: err,
		}
	}
	issues = append(issues, imageIssues...)

	if l.CompanyID != nil && l.Date != nil && strings.TrimSpace(l.Title) != "" {
		dup, err := s.listings.CountDuplicates(ctx, l.Kind, *l.CompanyID, *l.Date, l.Title, l.ID)
		if err != nil {
			s.logger.Error("duplicate scan failed", zap.String("id", l.ID.String()), zap.Error(err))
			return nil, dbError("failed to scan for duplicates", err)
		}
		if dup > 0 {
			issues = append(issues, fmt.Sprintf("Another %s with the same title already exists on this date", l.Kind))
		}
	}

	if l.CompanyID != nil {
		c, err := s.companies.GetCompanyByID(ctx, *l.CompanyID)
		if err != nil {
			return nil, dbError("failed to load company", err)
		}
		switch {
		case c == nil:
			issues = append(issues, "Company not found")
		case !c.IsVerified():
			issues = append(issues, "Company is not verified")
		}
	}

	if issues == nil {
		issues = []string{}
	}
	res := &CheckResult{Passed: len(issues) == 0, Issues: issues}
	metrics.Inc(metrics.AutomatedChecks, fmt.Sprint(res.Passed))
	return res, nil
}

func completenessIssues(l *models.Listing, now time.Time) []string {
	var issues []string
	if len([]rune(strings.TrimSpace(l.Title))) < minTitleLen {
		issues = append(issues, fmt.Sprintf("Title must be at least %d characters", minTitleLen))
	}
	if len([]rune(strings.TrimSpace(l.Description))) < minDescriptionLen {
		issues = append(issues, fmt.Sprintf("Description must be at least %d characters", minDescriptionLen))
	}
	if l.Date == nil {
		issues = append(issues, "Date is required")
	} else if dateOnly(*l.Date).Before(dateOnly(now)) {
		issues = append(issues, "Date cannot be in the past")
	}
	if len([]rune(strings.TrimSpace(l.Location))) < minLocationLen {
		issues = append(issues, fmt.Sprintf("Location must be at least %d characters", minLocationLen))
	}
	if strings.TrimSpace(l.Category) == "" {
		issues = append(issues, "Category is required")
	}
	return issues
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ShouldAutoApprove reports whether the company's submissions skip manual review: it must be verified and on a
// tier with auto approval.
func (s *Service) ShouldAutoApprove(ctx context.Context, companyID uuid.UUID) (bool, error) {
	c, err := s.companies.GetCompanyByID(ctx, companyID)
	if err != nil {
		return false, dbError("failed to load company", err)
	}
	if c == nil {
		return false, nil
	}
	return c.IsVerified() && c.SubscriptionTier.Limits().AutoApproval, nil
}

// AutoApprove approves a freshly submitted listing on behalf of its creator.
func (s *Service) AutoApprove(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	return s.approve(ctx, l.Kind, l.ID, l.CreatedBy, "auto-approved")
}

// GetModerationHistory returns the audit log of an event, newest first.
func (s *Service) GetModerationHistory(ctx context.Context, eventID uuid.UUID) ([]models.ModerationLog, error) {
	return s.History(ctx, models.KindEvent, eventID)
}

// GetHackathonModerationHistory returns the audit log of a hackathon, newest first.
func (s *Service) GetHackathonModerationHistory(ctx context.Context, hackathonID uuid.UUID) ([]models.ModerationLog, error) {
	return s.History(ctx, models.KindHackathon, hackathonID)
}

// History returns the audit log of a listing, newest first.
func (s *Service) History(ctx context.Context, kind models.ListingKind, id uuid.UUID) ([]models.ModerationLog, error) {
	if !kind.Valid() {
		return nil, newError(CodeFailedValidation, http.StatusBadRequest, fmt.Sprintf("unknown listing kind %q", kind))
	}
	logs, err := s.logs.List(ctx, kind, id)
	if err != nil {
		s.logger.Error("moderation history lookup failed", zap.String("id", id.String()), zap.Error(err))
		return nil, dbError("failed to load moderation history", err)
	}
	if logs == nil {
		logs = []models.ModerationLog{}
	}
	return logs, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
