package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingKind distinguishes the two moderated content tables.
type ListingKind string

const (
	KindEvent     ListingKind = "event"
	KindHackathon ListingKind = "hackathon"
)

// Valid reports whether k is a known listing kind.
func (k ListingKind) Valid() bool {
	return k == KindEvent || k == KindHackathon
}

// ApprovalStatus is the moderation state of a listing.
type ApprovalStatus string

const (
	ApprovalPending          ApprovalStatus = "pending"
	ApprovalApproved         ApprovalStatus = "approved"
	ApprovalRejected         ApprovalStatus = "rejected"
	ApprovalChangesRequested ApprovalStatus = "changes_requested"
)

// Listing is an event or hackathon submitted by a company.
type Listing struct {
	ID              uuid.UUID      `json:"id"`
	Kind            ListingKind    `json:"kind"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Date            *time.Time     `json:"date,omitempty"`
	Location        string         `json:"location"`
	Category        string         `json:"category"`
	ImageURL        string         `json:"image_url,omitempty"`
	CompanyID       *uuid.UUID     `json:"company_id,omitempty"`
	CreatedBy       uuid.UUID      `json:"created_by"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	ApprovedBy      *uuid.UUID     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
