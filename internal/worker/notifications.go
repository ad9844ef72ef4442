package worker

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/internal/moderation"
	"github.com/eventhive/backend/internal/subscriptions"
	"github.com/eventhive/backend/pkg/queue"
)

// Enqueuer accepts email jobs.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// CompanyLookup resolves the recipient of a decision email.
type CompanyLookup interface {
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// Notifications turns domain happenings into queued emails.
type Notifications struct {
	queue     Enqueuer
	companies CompanyLookup
	logger    *zap.Logger
}

// NewNotifications creates the email composer.
func NewNotifications(q Enqueuer, companies CompanyLookup, logger *zap.Logger) *Notifications {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifications{queue: q, companies: companies, logger: logger}
}

// HandleDecision queues a mail to the listing's company. Submissions and decisions on listings without a company
// are ignored.
func (n *Notifications) HandleDecision(ctx context.Context, d moderation.Decision) {
	if d.CompanyID == nil || d.Action == models.ActionSubmitted {
		return
	}
	c, err := n.companies.GetCompanyByID(ctx, *d.CompanyID)
	if err != nil || c == nil || c.Email == "" {
		n.logger.Warn("decision recipient unavailable",
			zap.String("company_id", d.CompanyID.String()), zap.Error(err))
		return
	}
	subject, body := decisionEmail(d)
	if err := n.queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypeModerationDecision,
		CompanyID:      d.CompanyID,
		RecipientEmail: c.Email,
		Subject:        subject,
		BodyHTML:       body,
	}); err != nil {
		n.logger.Error("decision email enqueue failed", zap.String("listing_id", d.ListingID.String()), zap.Error(err))
	}
}

func decisionEmail(d moderation.Decision) (subject, body string) {
	title := html.EscapeString(d.Title)
	switch d.Status {
	case models.ApprovalApproved:
		subject = fmt.Sprintf("Your %s %q is live", d.Kind, d.Title)
		body = fmt.Sprintf("<p>Your %s <strong>%s</strong> was approved and is now public.</p>", d.Kind, title)
	case models.ApprovalRejected:
		subject = fmt.Sprintf("Your %s %q was rejected", d.Kind, d.Title)
		body = fmt.Sprintf("<p>Your %s <strong>%s</strong> was rejected.</p>", d.Kind, title)
	case models.ApprovalChangesRequested:
		subject = fmt.Sprintf("Changes requested for your %s %q", d.Kind, d.Title)
		body = fmt.Sprintf("<p>A moderator asked for changes to your %s <strong>%s</strong>.</p>", d.Kind, title)
	default:
		subject = fmt.Sprintf("Update on your %s %q", d.Kind, d.Title)
		body = fmt.Sprintf("<p>The status of your %s <strong>%s</strong> is now %s.</p>", d.Kind, title, d.Status)
	}
	if d.Reason != "" {
		body += fmt.Sprintf("<p>%s</p>", html.EscapeString(d.Reason))
	}
	return subject, body
}

// QueueExpiryWarnings queues one warning per expiring subscription and returns how many were queued.
func (n *Notifications) QueueExpiryWarnings(ctx context.Context, list []subscriptions.Expiring, now time.Time) int {
	queued := 0
	for _, e := range list {
		if e.Email == "" {
			continue
		}
		days := subscriptions.DaysUntil(e.ExpiresAt, now)
		id := e.CompanyID
		err := n.queue.EnqueueEmail(ctx, queue.EmailPayload{
			EmailType:      models.EmailTypeSubscriptionExpiring,
			CompanyID:      &id,
			RecipientEmail: e.Email,
			Subject:        fmt.Sprintf("Your %s plan expires in %d days", e.Tier, days),
			BodyHTML: fmt.Sprintf("<p>The %s subscription for <strong>%s</strong> ends on %s. Renew to keep your limits.</p>",
				e.Tier, html.EscapeString(e.Name), e.ExpiresAt.Format(time.DateOnly)),
		})
		if err != nil {
			n.logger.Error("expiry email enqueue failed", zap.String("company_id", id.String()), zap.Error(err))
			continue
		}
		queued++
	}
	return queued
}
