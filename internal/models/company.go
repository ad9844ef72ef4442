package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the admin review state of a company profile.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// CompanyStatus marks soft-deleted companies.
type CompanyStatus string

const (
	CompanyStatusActive  CompanyStatus = "active"
	CompanyStatusDeleted CompanyStatus = "deleted"
)

// Company is an organizer (company or sponsor) that publishes events and hackathons.
type Company struct {
	ID                    uuid.UUID          `json:"id"`
	Name                  string             `json:"name"`
	Slug                  string             `json:"slug"`
	LegalName             string             `json:"legal_name,omitempty"`
	Description           string             `json:"description,omitempty"`
	Email                 string             `json:"email"`
	Phone                 string             `json:"phone,omitempty"`
	Website               string             `json:"website"`
	LogoURL               string             `json:"logo_url,omitempty"`
	Industry              string             `json:"industry,omitempty"`
	CompanySize           string             `json:"company_size,omitempty"`
	Address               string             `json:"address,omitempty"`
	City                  string             `json:"city,omitempty"`
	Country               string             `json:"country,omitempty"`
	LinkedInURL           string             `json:"linkedin_url,omitempty"`
	TwitterURL            string             `json:"twitter_url,omitempty"`
	VerificationStatus    VerificationStatus `json:"verification_status"`
	VerifiedAt            *time.Time         `json:"verified_at,omitempty"`
	VerifiedBy            *uuid.UUID         `json:"verified_by,omitempty"`
	SubscriptionTier      Tier               `json:"subscription_tier"`
	SubscriptionStatus    SubscriptionStatus `json:"subscription_status"`
	SubscriptionStartedAt *time.Time         `json:"subscription_started_at,omitempty"`
	SubscriptionExpiresAt *time.Time         `json:"subscription_expires_at,omitempty"`
	TotalEvents           int                `json:"total_events"`
	TotalHackathons       int                `json:"total_hackathons"`
	TotalRegistrations    int                `json:"total_registrations"`
	Status                CompanyStatus      `json:"status"`
	CreatedBy             uuid.UUID          `json:"created_by"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// IsVerified reports whether an admin has verified the company.
func (c *Company) IsVerified() bool {
	return c.VerificationStatus == VerificationVerified
}

// CompanyMemberRole is the role of a user inside a company.
type CompanyMemberRole string

const (
	MemberRoleOwner  CompanyMemberRole = "owner"
	MemberRoleAdmin  CompanyMemberRole = "admin"
	MemberRoleMember CompanyMemberRole = "member"
)

// CompanyMemberStatus values.
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// CompanyMember links a user to a company with a role.
type CompanyMember struct {
	ID        uuid.UUID         `json:"id"`
	CompanyID uuid.UUID         `json:"company_id"`
	UserID    uuid.UUID         `json:"user_id"`
	Role      CompanyMemberRole `json:"role"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CompanyCounter names a denormalized counter column on companies.
type CompanyCounter string

const (
	CounterEvents        CompanyCounter = "total_events"
	CounterHackathons    CompanyCounter = "total_hackathons"
	CounterRegistrations CompanyCounter = "total_registrations"
)
