package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/metrics"
)

// Repository handles company_analytics persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes the row for (company_id, date), replacing the counters of an existing one.
func (r *Repository) Upsert(ctx context.Context, a *models.CompanyAnalytics) error {
	defer metrics.TrackDBOperation("analytics_upsert")(time.Now())
	const q = `INSERT INTO company_analytics (company_id, date, events_created, events_approved, hackathons_created, hackathons_approved)
		VALUES ($1, $2::date, $3, $4, $5, $6)
		ON CONFLICT (company_id, date) DO UPDATE SET
			events_created = EXCLUDED.events_created,
			events_approved = EXCLUDED.events_approved,
			hackathons_created = EXCLUDED.hackathons_created,
			hackathons_approved = EXCLUDED.hackathons_approved,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, a.CompanyID, a.Date, a.EventsCreated, a.EventsApproved, a.HackathonsCreated, a.HackathonsApproved).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// List returns the company's rows with from <= date <= to, oldest first.
func (r *Repository) List(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]models.CompanyAnalytics, error) {
	const q = `SELECT id, company_id, date, events_created, events_approved, hackathons_created, hackathons_approved, created_at, updated_at
		FROM company_analytics
		WHERE company_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date ASC`
	rows, err := r.pool.Query(ctx, q, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CompanyAnalytics
	for rows.Next() {
		var a models.CompanyAnalytics
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Date, &a.EventsCreated, &a.EventsApproved, &a.HackathonsCreated,
			&a.HackathonsApproved, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// DailyCounts aggregates listing activity per company for the UTC day starting at day. Companies with no
// activity are omitted.
func (r *Repository) DailyCounts(ctx context.Context, day time.Time) ([]models.CompanyAnalytics, error) {
	defer metrics.TrackDBOperation("analytics_daily_counts")(time.Now())
	const q = `WITH activity AS (
			SELECT company_id,
				COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2) AS created,
				COUNT(*) FILTER (WHERE approval_status = 'approved' AND approved_at >= $1 AND approved_at < $2) AS approved,
				'event' AS kind
			FROM events WHERE company_id IS NOT NULL GROUP BY company_id
			UNION ALL
			SELECT company_id,
				COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2),
				COUNT(*) FILTER (WHERE approval_status = 'approved' AND approved_at >= $1 AND approved_at < $2),
				'hackathon'
			FROM hackathons WHERE company_id IS NOT NULL GROUP BY company_id
		)
		SELECT company_id,
			COALESCE(SUM(created) FILTER (WHERE kind = 'event'), 0)::int,
			COALESCE(SUM(approved) FILTER (WHERE kind = 'event'), 0)::int,
			COALESCE(SUM(created) FILTER (WHERE kind = 'hackathon'), 0)::int,
			COALESCE(SUM(approved) FILTER (WHERE kind = 'hackathon'), 0)::int
		FROM activity
		GROUP BY company_id
		HAVING SUM(created) + SUM(approved) > 0`
	rows, err := r.pool.Query(ctx, q, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CompanyAnalytics
	for rows.Next() {
		a := models.CompanyAnalytics{Date: day}
		if err := rows.Scan(&a.CompanyID, &a.EventsCreated, &a.EventsApproved, &a.HackathonsCreated, &a.HackathonsApproved); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
