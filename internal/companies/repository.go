package companies

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/metrics"
)

const uniqueViolation = "23505"

// companyColumns is the select list scanned by scanCompany.
const companyColumns = `id, name, slug, COALESCE(legal_name, ''), COALESCE(description, ''), email,
	COALESCE(phone, ''), website, COALESCE(logo_url, ''), COALESCE(industry, ''), COALESCE(company_size, ''),
	COALESCE(address, ''), COALESCE(city, ''), COALESCE(country, ''), COALESCE(linkedin_url, ''),
	COALESCE(twitter_url, ''), verification_status, verified_at, verified_by, subscription_tier,
	subscription_status, subscription_started_at, subscription_expires_at, total_events, total_hackathons,
	total_registrations, status, created_by, created_at, updated_at`

// Repository handles company and company_members persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a companies repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanCompany(row pgx.Row) (*models.Company, error) {
	var c models.Company
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.LegalName, &c.Description, &c.Email,
		&c.Phone, &c.Website, &c.LogoURL, &c.Industry, &c.CompanySize,
		&c.Address, &c.City, &c.Country, &c.LinkedInURL,
		&c.TwitterURL, &c.VerificationStatus, &c.VerifiedAt, &c.VerifiedBy, &c.SubscriptionTier,
		&c.SubscriptionStatus, &c.SubscriptionStartedAt, &c.SubscriptionExpiresAt, &c.TotalEvents, &c.TotalHackathons,
		&c.TotalRegistrations, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanOne maps pgx.ErrNoRows to (nil, nil).
func scanOne(row pgx.Row) (*models.Company, error) {
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// Create inserts a company. A slug collision is reported as ErrSlugTaken.
func (r *Repository) Create(ctx context.Context, c *models.Company) error {
	defer metrics.TrackDBOperation("company_insert")(time.Now())
	const q = `INSERT INTO companies (id, name, slug, legal_name, description, email, phone, website, logo_url,
			industry, company_size, address, city, country, linkedin_url, twitter_url, verification_status,
			subscription_tier, subscription_status, subscription_started_at, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8, NULLIF($9, ''),
			NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''), NULLIF($15, ''),
			NULLIF($16, ''), $17, $18, $19, $20, $21, $22, $23, $24)`
	_, err := r.pool.Exec(ctx, q, c.ID, c.Name, c.Slug, c.LegalName, c.Description, c.Email, c.Phone, c.Website,
		c.LogoURL, c.Industry, c.CompanySize, c.Address, c.City, c.Country, c.LinkedInURL, c.TwitterURL,
		c.VerificationStatus, c.SubscriptionTier, c.SubscriptionStatus, c.SubscriptionStartedAt, c.Status,
		c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSlugTaken
	}
	return err
}

// Delete removes a company row and, by cascade, its memberships.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	return err
}

// GetByID returns a company by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	defer metrics.TrackDBOperation("company_get")(time.Now())
	q := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 AND status = 'active'`
	return scanOne(r.pool.QueryRow(ctx, q, id))
}

// GetBySlug returns a company by slug. Soft-deleted companies keep their slug reserved.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	defer metrics.TrackDBOperation("company_get")(time.Now())
	q := `SELECT ` + companyColumns + ` FROM companies WHERE slug = $1`
	return scanOne(r.pool.QueryRow(ctx, q, slug))
}

// Update writes the given profile columns and stamps updated_at. Column names must come from UpdatableFields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]string) (*models.Company, error) {
	defer metrics.TrackDBOperation("company_update")(time.Now())
	cols := make([]string, 0, len(fields))
	for k := range fields {
		if _, ok := UpdatableFields[k]; !ok {
			return nil, fmt.Errorf("column %q is not updatable", k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	for _, col := range cols {
		args = append(args, fields[col])
		if col == "name" || col == "email" || col == "website" {
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		} else {
			sets = append(sets, fmt.Sprintf("%s = NULLIF($%d, '')", col, len(args)))
		}
	}
	q := `UPDATE companies SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND status = 'active' RETURNING ` + companyColumns
	return scanOne(r.pool.QueryRow(ctx, q, args...))
}

// SoftDelete marks the company deleted. It reports false when no active company has the ID.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE companies SET status = 'deleted', updated_at = NOW() WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// List returns active companies matching f, newest first, and the total number of matches.
func (r *Repository) List(ctx context.Context, f ListFilters) ([]models.Company, int, error) {
	defer metrics.TrackDBOperation("company_list")(time.Now())
	where := []string{"status = 'active'", "verification_status = $1"}
	args := []interface{}{f.VerificationStatus}
	if f.Industry != "" {
		args = append(args, f.Industry)
		where = append(where, fmt.Sprintf("industry = $%d", len(args)))
	}
	if f.CompanySize != "" {
		args = append(args, f.CompanySize)
		where = append(where, fmt.Sprintf("company_size = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM companies WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		companyColumns, cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *c)
	}
	return list, total, rows.Err()
}

// SetVerification records an admin verification decision.
func (r *Repository) SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, adminID uuid.UUID, at time.Time) (*models.Company, error) {
	q := `UPDATE companies SET verification_status = $2, verified_at = $3, verified_by = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'active' RETURNING ` + companyColumns
	return scanOne(r.pool.QueryRow(ctx, q, id, status, at, adminID))
}

// AddMember inserts a company membership.
func (r *Repository) AddMember(ctx context.Context, m *models.CompanyMember) error {
	const q = `INSERT INTO company_members (id, company_id, user_id, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, q, m.ID, m.CompanyID, m.UserID, m.Role, m.Status, m.CreatedAt, m.UpdatedAt)
	return err
}

// ListMembers returns the company's members, owner first, then by join date.
func (r *Repository) ListMembers(ctx context.Context, companyID uuid.UUID) ([]models.CompanyMember, error) {
	const q = `SELECT id, company_id, user_id, role, status, created_at, updated_at
		FROM company_members
		WHERE company_id = $1
		ORDER BY (role = 'owner') DESC, created_at ASC`
	rows, err := r.pool.Query(ctx, q, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CompanyMember
	for rows.Next() {
		var m models.CompanyMember
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// CountEventsSince counts the company's events created at or after since.
func (r *Repository) CountEventsSince(ctx context.Context, companyID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM events WHERE company_id = $1 AND created_at >= $2`, companyID, since).Scan(&n)
	return n, err
}

// CountActiveMembers counts active memberships.
func (r *Repository) CountActiveMembers(ctx context.Context, companyID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM company_members WHERE company_id = $1 AND status = 'active'`, companyID).Scan(&n)
	return n, err
}

// IncrementCounter adds one to a denormalized total.
func (r *Repository) IncrementCounter(ctx context.Context, companyID uuid.UUID, counter models.CompanyCounter) error {
	switch counter {
	case models.CounterEvents, models.CounterHackathons, models.CounterRegistrations:
	default:
		return fmt.Errorf("unknown company counter %q", counter)
	}
	q := fmt.Sprintf(`UPDATE companies SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id = $1`, counter)
	_, err := r.pool.Exec(ctx, q, companyID)
	return err
}
