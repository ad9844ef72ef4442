package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/pkg/metrics"
)

// Repository reads usage counts and writes the subscription columns of companies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a subscriptions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountEventsSince counts the company's events created at or after since.
func (r *Repository) CountEventsSince(ctx context.Context, companyID uuid.UUID, since time.Time) (int, error) {
	defer metrics.TrackDBOperation("usage_events")(time.Now())
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM events WHERE company_id = $1 AND created_at >= $2`, companyID, since).Scan(&n)
	return n, err
}

// CountActiveMembers counts active memberships.
func (r *Repository) CountActiveMembers(ctx context.Context, companyID uuid.UUID) (int, error) {
	defer metrics.TrackDBOperation("usage_members")(time.Now())
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM company_members WHERE company_id = $1 AND status = 'active'`, companyID).Scan(&n)
	return n, err
}

// SetState writes tier, status, start and expiry.
func (r *Repository) SetState(ctx context.Context, companyID uuid.UUID, s State) (bool, error) {
	defer metrics.TrackDBOperation("subscription_update")(time.Now())
	const q = `UPDATE companies
		SET subscription_tier = $2, subscription_status = $3, subscription_started_at = $4,
			subscription_expires_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, q, companyID, s.Tier, s.Status, s.StartedAt, s.ExpiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListExpiring returns active paid subscriptions with an expiry in [from, to], soonest first.
func (r *Repository) ListExpiring(ctx context.Context, from, to time.Time) ([]Expiring, error) {
	const q = `SELECT id, name, email, subscription_tier, subscription_expires_at
		FROM companies
		WHERE status = 'active'
			AND subscription_status = 'active'
			AND subscription_tier <> 'free'
			AND subscription_expires_at BETWEEN $1 AND $2
		ORDER BY subscription_expires_at ASC`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Expiring
	for rows.Next() {
		var e Expiring
		if err := rows.Scan(&e.CompanyID, &e.Name, &e.Email, &e.Tier, &e.ExpiresAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
