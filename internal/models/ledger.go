package models

// GenesisHash is the prev-hash sentinel of the first entry in a
// family's chain: 64 zero characters.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Ledger event types. These are persisted vocabulary; never rename.
const (
	EventGenesis             = "GENESIS"
	EventAddMember           = "ADD_MEMBER"
	EventRemoveMember        = "REMOVE_MEMBER"
	EventResetKid            = "RESET_KID"
	EventPurchaseScreen      = "PURCHASE_SCREEN"
	EventPurchaseFood        = "PURCHASE_FOOD"
	EventSessionStart        = "SESSION_START"
	EventSessionStop         = "SESSION_STOP"
	EventDailyAllotment      = "DAILY_ALLOTMENT"
	EventReward              = "REWARD"
	EventConsequenceTime     = "CONSEQUENCE_TIME"
	EventConsequenceMoney    = "CONSEQUENCE_MONEY"
	EventTransferToSavings   = "TRANSFER_TO_SAVINGS"
	EventTransferToSpending  = "TRANSFER_TO_SPENDING"
	EventUpdateSavings       = "UPDATE_SAVINGS_SETTINGS"
	EventBootstrapFirstAdmin = "BOOTSTRAP_FIRST_ADMIN"
	EventBootstrapAdmin      = "BOOTSTRAP_ADMIN"
	EventBootstrapKid        = "BOOTSTRAP_KID"
	EventBootstrapKidExpl    = "BOOTSTRAP_KID_EXPLICIT"
)

// LedgerEntry is one record in a family's append-only hash chain.
// Seq is the per-family monotonic ordering key, assigned in the same
// transaction that computes Hash; Ts is wall-clock seconds and is part
// of the hash input but not the ordering key. Entries are write-once.
type LedgerEntry struct {
	FamilyID         string
	Seq              int64
	Ts               int64
	ActorID          string
	TargetID         string
	EventType        string
	Payload          string // payload JSON as stored
	CanonicalPayload string // deterministic serialization used for the hash
	PrevHash         string
	Hash             string
}
