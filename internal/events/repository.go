package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/internal/moderation"
	"github.com/eventhive/backend/pkg/metrics"
)

const listingColumns = `id, title, description, date, location, category, COALESCE(image_url, ''), company_id,
	created_by, approval_status, COALESCE(rejection_reason, ''), approved_by, approved_at, created_at, updated_at`

// Repository persists events and hackathons. Both tables share one shape and are picked by kind.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a listings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func table(kind models.ListingKind) string {
	if kind == models.KindHackathon {
		return "hackathons"
	}
	return "events"
}

func scanListing(kind models.ListingKind, row pgx.Row) (*models.Listing, error) {
	l := models.Listing{Kind: kind}
	err := row.Scan(&l.ID, &l.Title, &l.Description, &l.Date, &l.Location, &l.Category, &l.ImageURL, &l.CompanyID,
		&l.CreatedBy, &l.ApprovalStatus, &l.RejectionReason, &l.ApprovedBy, &l.ApprovedAt, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a listing and fills its ID and timestamps.
func (r *Repository) Create(ctx context.Context, l *models.Listing) error {
	defer metrics.TrackDBOperation(table(l.Kind) + "_insert")(time.Now())
	q := `INSERT INTO ` + table(l.Kind) + ` (title, description, date, location, category, image_url, company_id,
			created_by, approval_status)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, l.Title, l.Description, l.Date, l.Location, l.Category, l.ImageURL, l.CompanyID,
		l.CreatedBy, l.ApprovalStatus).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// Get returns a listing or (nil, nil).
func (r *Repository) Get(ctx context.Context, kind models.ListingKind, id uuid.UUID) (*models.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM ` + table(kind) + ` WHERE id = $1`
	return scanListing(kind, r.pool.QueryRow(ctx, q, id))
}

// SetApproval writes the moderation columns and returns the updated row, or (nil, nil) when the row is gone or
// its status is no longer t.From.
func (r *Repository) SetApproval(ctx context.Context, kind models.ListingKind, id uuid.UUID, t moderation.Transition) (*models.Listing, error) {
	defer metrics.TrackDBOperation(table(kind) + "_set_approval")(time.Now())
	q := `UPDATE ` + table(kind) + ` SET approval_status = $2, rejection_reason = NULLIF($3, ''), approved_by = $4,
			approved_at = $5, updated_at = NOW()
		WHERE id = $1 AND approval_status = $6
		RETURNING ` + listingColumns
	return scanListing(kind, r.pool.QueryRow(ctx, q, id, t.Status, t.RejectionReason, t.ApprovedBy, t.ApprovedAt, t.From))
}

// CountDuplicates counts the company's listings on date with the same title, ignoring case.
func (r *Repository) CountDuplicates(ctx context.Context, kind models.ListingKind, companyID uuid.UUID, date time.Time, title string, excludeID uuid.UUID) (int, error) {
	q := `SELECT COUNT(*) FROM ` + table(kind) + `
		WHERE company_id = $1 AND date = $2::date AND LOWER(title) = LOWER($3) AND id <> $4`
	var n int
	err := r.pool.QueryRow(ctx, q, companyID, date, title, excludeID).Scan(&n)
	return n, err
}

// ListByCompany returns all of a company's listings of kind, newest first.
func (r *Repository) ListByCompany(ctx context.Context, kind models.ListingKind, companyID uuid.UUID) ([]models.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM ` + table(kind) + ` WHERE company_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, kind, q, companyID)
}

// ListPublic returns approved listings of kind dated from today on, soonest first.
func (r *Repository) ListPublic(ctx context.Context, kind models.ListingKind, limit, offset int) ([]models.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM ` + table(kind) + `
		WHERE approval_status = 'approved' AND (date IS NULL OR date >= CURRENT_DATE)
		ORDER BY date ASC NULLS LAST, created_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, kind, q, limit, offset)
}

func (r *Repository) list(ctx context.Context, kind models.ListingKind, q string, args ...interface{}) ([]models.Listing, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Listing
	for rows.Next() {
		l, err := scanListing(kind, rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *l)
	}
	return list, rows.Err()
}
