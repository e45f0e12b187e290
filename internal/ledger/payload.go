package ledger

import "github.com/WeCr8/goodbodybucks/internal/catalog"

// One payload variant per event type. Each carries the full catalog
// item snapshot and the computed amounts, so an entry still explains
// its state delta after the catalog has been edited. Money fields are
// fixed 2-decimal strings (models.MoneyString) for hash stability.

// GenesisPayload seeds a new family's chain
type GenesisPayload struct {
	Note string `json:"note"`
}

// AddMemberPayload records an admin adding a member
type AddMemberPayload struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// RemoveMemberPayload records an admin removing a member
type RemoveMemberPayload struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ResetKidPayload records an admin resetting a kid's wallet/session
type ResetKidPayload struct {
	Name    string `json:"name"`
	Balance string `json:"balance_gb"`
	Minutes int    `json:"minutes"`
	Locked  bool   `json:"locked"`
}

// PurchaseScreenPayload records a screen-package purchase
type PurchaseScreenPayload struct {
	Package catalog.ScreenPackage `json:"package"`
	Cost    string                `json:"cost_gb"`
}

// PurchaseFoodPayload records a food purchase
type PurchaseFoodPayload struct {
	Item catalog.FoodItem `json:"item"`
	Cost string           `json:"cost_gb"`
}

// SessionStartPayload records a session start
type SessionStartPayload struct {
	Mode string `json:"mode"`
}

// SessionStopPayload records who stopped a session
type SessionStopPayload struct {
	StoppedBy string `json:"stopped_by"`
}

// DailyAllotmentPayload records an allotment and its computed split
type DailyAllotmentPayload struct {
	Amount         string `json:"amount_gb"`
	SpendingShare  string `json:"spending_gb"`
	SavingsShare   string `json:"savings_gb"`
	SavingsPercent int    `json:"savings_percent"`
	SavingsEnabled bool   `json:"savings_enabled"`
}

// RewardPayload records a reward credit
type RewardPayload struct {
	Action catalog.RewardAction `json:"action"`
	Delta  string               `json:"delta_gb"`
}

// ConsequenceTimePayload records a time consequence
type ConsequenceTimePayload struct {
	Consequence catalog.TimeConsequence `json:"consequence"`
	Note        string                  `json:"note"`
}

// ConsequenceMoneyPayload records a money consequence. Delta is the
// configured amount, not the clamped effect.
type ConsequenceMoneyPayload struct {
	Consequence catalog.MoneyConsequence `json:"consequence"`
	Delta       string                   `json:"delta_gb"`
	Note        string                   `json:"note"`
}

// TransferPayload records a move between sub-balances
type TransferPayload struct {
	Amount      string `json:"amount_gb"`
	InitiatedBy string `json:"initiated_by"`
}

// UpdateSavingsPayload records a savings-policy change
type UpdateSavingsPayload struct {
	Policy catalog.SavingsPolicy `json:"policy"`
}

// BootstrapPayload records first-time member registration
type BootstrapPayload struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
