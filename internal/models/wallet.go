package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a member's balances and screen-time minutes.
//
// LegacyBalance is the deprecated combined GB$ balance, maintained in
// parallel with the spending/savings split for older clients. Minutes
// is never negative; Version backs optimistic concurrency and changes
// on every write.
type Wallet struct {
	FamilyID        string
	MemberID        string
	LegacyBalance   decimal.Decimal
	SpendingBalance decimal.Decimal
	SavingsBalance  decimal.Decimal
	Minutes         int
	Locked          bool
	Version         int64
	UpdatedAt       time.Time
}

// NewWallet returns a zeroed wallet for a member
func NewWallet(familyID, memberID string, now time.Time) *Wallet {
	return &Wallet{
		FamilyID:        familyID,
		MemberID:        memberID,
		LegacyBalance:   decimal.Zero,
		SpendingBalance: decimal.Zero,
		SavingsBalance:  decimal.Zero,
		UpdatedAt:       now,
	}
}

// Session is a member's screen-time session record. Active implies
// StartedAt is set. At most one session per member is active at a time
// (the row is keyed by member).
type Session struct {
	FamilyID  string
	MemberID  string
	Active    bool
	Mode      string
	StartedAt *time.Time
	EndedAt   *time.Time
	Version   int64
	UpdatedAt time.Time
}

// NewSession returns an inactive session record for a member
func NewSession(familyID, memberID string, now time.Time) *Session {
	return &Session{
		FamilyID:  familyID,
		MemberID:  memberID,
		UpdatedAt: now,
	}
}
