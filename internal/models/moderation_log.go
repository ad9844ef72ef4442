package models

import (
	"time"

	"github.com/google/uuid"
)

// ModerationAction is the transition recorded in a moderation log row.
type ModerationAction string

const (
	ActionSubmitted ModerationAction = "submitted"
	ActionApproved  ModerationAction = "approved"
	ActionRejected  ModerationAction = "rejected"
	ActionEdited    ModerationAction = "edited"
	ActionDeleted   ModerationAction = "deleted"
)

// ModerationLog is an append-only audit entry. Exactly one of EventID and HackathonID is set.
type ModerationLog struct {
	ID          uuid.UUID        `json:"id"`
	EventID     *uuid.UUID       `json:"event_id,omitempty"`
	HackathonID *uuid.UUID       `json:"hackathon_id,omitempty"`
	Action      ModerationAction `json:"action"`
	PerformedBy uuid.UUID        `json:"performed_by"`
	Reason      string           `json:"reason,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewModerationLog builds a log row for a listing of the given kind.
func NewModerationLog(kind ListingKind, listingID uuid.UUID, action ModerationAction, performedBy uuid.UUID, reason, notes string) *ModerationLog {
	l := &ModerationLog{
		Action:      action,
		PerformedBy: performedBy,
		Reason:      reason,
		Notes:       notes,
	}
	id := listingID
	if kind == KindHackathon {
		l.HackathonID = &id
	} else {
		l.EventID = &id
	}
	return l
}
