package models

// Role represents a platform user role carried in access tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)
