package models

// Tier is a company subscription tier.
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// SubscriptionStatus is the billing state of a company subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionSuspended SubscriptionStatus = "suspended"
)

// TierLimits are the quotas attached to a tier. A nil limit means unlimited.
type TierLimits struct {
	EventsPerMonth *int `json:"events_per_month"`
	TeamMembers    *int `json:"team_members"`
	AutoApproval   bool `json:"auto_approval"`
}

func limit(n int) *int { return &n }

var tierLimits = map[Tier]TierLimits{
	TierFree:       {EventsPerMonth: limit(3), TeamMembers: limit(1)},
	TierBasic:      {EventsPerMonth: limit(10), TeamMembers: limit(3)},
	TierPro:        {EventsPerMonth: limit(50), TeamMembers: limit(10), AutoApproval: true},
	TierEnterprise: {AutoApproval: true},
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}

// Limits returns the quotas for t. Unknown tiers get the free tier limits.
func (t Tier) Limits() TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// Next returns the tier one step up, or "" for the top tier.
func (t Tier) Next() Tier {
	switch t {
	case TierFree:
		return TierBasic
	case TierBasic:
		return TierPro
	case TierPro:
		return TierEnterprise
	default:
		return ""
	}
}

// LimitAction is a quota-gated action.
type LimitAction string

const (
	ActionCreateEvent   LimitAction = "create_event"
	ActionAddTeamMember LimitAction = "add_team_member"
)

// Valid reports whether a is a known action.
func (a LimitAction) Valid() bool {
	return a == ActionCreateEvent || a == ActionAddTeamMember
}
