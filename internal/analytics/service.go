// Package analytics keeps one row of listing activity per company and day.
package analytics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/companies"
	"github.com/eventhive/backend/internal/models"
)

// maxRange bounds a single List query.
const maxRange = 366 * 24 * time.Hour

// Store persists daily analytics rows.
type Store interface {
	Upsert(ctx context.Context, a *models.CompanyAnalytics) error
	List(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]models.CompanyAnalytics, error)
	DailyCounts(ctx context.Context, day time.Time) ([]models.CompanyAnalytics, error)
}

// Service records and reads company analytics.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an analytics service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Upsert stores the counters for a company and day, overwriting an existing row for the same pair.
func (s *Service) Upsert(ctx context.Context, a *models.CompanyAnalytics) error {
	if a.CompanyID == uuid.Nil {
		return companies.NewError(companies.CodeInvalidDocuments, http.StatusBadRequest, "company id is required")
	}
	a.Date = Day(a.Date)
	if err := s.store.Upsert(ctx, a); err != nil {
		s.logger.Error("analytics upsert failed",
			zap.String("company_id", a.CompanyID.String()), zap.Time("date", a.Date), zap.Error(err))
		return storageError(err)
	}
	return nil
}

// SnapshotDay aggregates the listing activity of day and upserts one row per active company. It returns the
// number of rows written. Running it twice for the same day leaves the same rows behind.
func (s *Service) SnapshotDay(ctx context.Context, day time.Time) (int, error) {
	day = Day(day)
	rows, err := s.store.DailyCounts(ctx, day)
	if err != nil {
		s.logger.Error("analytics aggregation failed", zap.Time("date", day), zap.Error(err))
		return 0, storageError(err)
	}
	written := 0
	for i := range rows {
		rows[i].Date = day
		if err := s.Upsert(ctx, &rows[i]); err != nil {
			return written, err
		}
		written++
	}
	s.logger.Info("analytics snapshot written", zap.Time("date", day), zap.Int("companies", written))
	return written, nil
}

// List returns a company's daily rows between from and to inclusive. A zero from means 30 days before to; a
// zero to means today.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]models.CompanyAnalytics, error) {
	if to.IsZero() {
		to = s.now()
	}
	to = Day(to)
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	from = Day(from)
	if from.After(to) {
		return nil, companies.NewError(companies.CodeInvalidDocuments, http.StatusBadRequest, "from must not be after to")
	}
	if to.Sub(from) > maxRange {
		return nil, companies.NewError(companies.CodeInvalidDocuments, http.StatusBadRequest,
			fmt.Sprintf("range must not exceed %d days", int(maxRange.Hours()/24)))
	}
	list, err := s.store.List(ctx, companyID, from, to)
	if err != nil {
		s.logger.Error("analytics lookup failed", zap.String("company_id", companyID.String()), zap.Error(err))
		return nil, storageError(err)
	}
	if list == nil {
		list = []models.CompanyAnalytics{}
	}
	return list, nil
}

func storageError(err error) *companies.CompanyError {
	return &companies.CompanyError{
		Message:    "analytics storage failure",
		Code:       companies.CodeDatabase,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
