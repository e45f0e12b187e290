package models

import "time"

// Member roles
const (
	RoleAdmin = "admin"
	RoleKid   = "kid"
)

// Family is the top-level ownership unit. Config holds the per-family
// catalog document; ChainSuspect is set when ledger verification fails
// and cleared only by a later successful verification.
type Family struct {
	ID                  string
	Name                string
	Config              string // catalog JSON document
	BootstrapSecretHash string
	ChainSuspect        bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Member is a person in a family, either an admin or a kid
type Member struct {
	FamilyID       string
	ID             string
	Name           string
	Role           string
	AccessCodeHash string
	CreatedAt      time.Time
}

// IsAdmin reports whether the member holds the admin role
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// Principal is the acting identity resolved from a bearer token
type Principal struct {
	FamilyID string
	MemberID string
	Role     string
}

// IsAdmin reports whether the principal holds the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
