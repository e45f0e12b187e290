package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase types
const (
	PurchaseTypeScreen = "screen"
	PurchaseTypeFood   = "food"
)

// PurchaseRecord is a denormalized receipt kept for fast per-member
// history queries. It is written in the same transaction as the wallet
// debit it describes, but it is not part of the integrity chain.
type PurchaseRecord struct {
	ID       string
	FamilyID string
	MemberID string
	Ts       time.Time
	Type     string
	Label    string
	Cost     decimal.Decimal
	Extra    string // item detail JSON (minutes, category)
}
