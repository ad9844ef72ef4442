package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/metrics"
)

// Repository persists moderation_logs rows. Rows are only ever inserted.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a moderation log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends a log entry.
func (r *Repository) Insert(ctx context.Context, l *models.ModerationLog) error {
	defer metrics.TrackDBOperation("moderation_log_insert")(time.Now())
	const q = `INSERT INTO moderation_logs (id, event_id, hackathon_id, action, performed_by, reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`
	_, err := r.pool.Exec(ctx, q, l.ID, l.EventID, l.HackathonID, l.Action, l.PerformedBy, l.Reason, l.Notes, l.CreatedAt)
	return err
}

// List returns the entries for a listing, newest first.
func (r *Repository) List(ctx context.Context, kind models.ListingKind, listingID uuid.UUID) ([]models.ModerationLog, error) {
	column := "event_id"
	if kind == models.KindHackathon {
		column = "hackathon_id"
	}
	q := `SELECT id, event_id, hackathon_id, action, performed_by, COALESCE(reason, ''), COALESCE(notes, ''), created_at
		FROM moderation_logs WHERE ` + column + ` = $1 ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, q, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ModerationLog
	for rows.Next() {
		var l models.ModerationLog
		if err := rows.Scan(&l.ID, &l.EventID, &l.HackathonID, &l.Action, &l.PerformedBy, &l.Reason, &l.Notes, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
