package models

import (
	"time"

	"github.com/google/uuid"
)

// CompanyAnalytics holds one day of metrics for a company.
type CompanyAnalytics struct {
	ID                 uuid.UUID `json:"id"`
	CompanyID          uuid.UUID `json:"company_id"`
	Date               time.Time `json:"date"`
	EventsCreated      int       `json:"events_created"`
	EventsApproved     int       `json:"events_approved"`
	HackathonsCreated  int       `json:"hackathons_created"`
	HackathonsApproved int       `json:"hackathons_approved"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
