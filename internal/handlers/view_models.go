package handlers

import (
	"encoding/json"

	"github.com/WeCr8/goodbodybucks/internal/models"
)

// ledgerEntryView is the wire shape of an audit entry. The payload is
// re-emitted as raw JSON rather than a double-encoded string.
type ledgerEntryView struct {
	Seq       int64           `json:"seq"`
	Ts        int64           `json:"ts"`
	ActorID   string          `json:"actor_id,omitempty"`
	TargetID  string          `json:"target_id,omitempty"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
}

func newLedgerEntryView(e *models.LedgerEntry) *ledgerEntryView {
	if e == nil {
		return nil
	}
	return &ledgerEntryView{
		Seq:       e.Seq,
		Ts:        e.Ts,
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		EventType: e.EventType,
		Payload:   json.RawMessage(e.Payload),
		PrevHash:  e.PrevHash,
		Hash:      e.Hash,
	}
}

// memberView is the wire shape of a member record
type memberView struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func newMemberView(m *models.Member) memberView {
	return memberView{MemberID: m.ID, Name: m.Name, Role: m.Role}
}

// purchaseView is the wire shape of a purchase receipt
type purchaseView struct {
	ID     string `json:"id"`
	Ts     int64  `json:"ts"`
	Type   string `json:"type"`
	Label  string `json:"label"`
	CostGB string `json:"cost_gb"`
	Extra  string `json:"extra,omitempty"`
}

func newPurchaseView(p models.PurchaseRecord) purchaseView {
	return purchaseView{
		ID:     p.ID,
		Ts:     p.Ts.Unix(),
		Type:   p.Type,
		Label:  p.Label,
		CostGB: models.MoneyString(p.Cost),
		Extra:  p.Extra,
	}
}

// mutationResponse is the envelope returned by state-changing
// operations: the audit entry when it was recorded, or a warning when
// the mutation stood but the append failed.
type mutationResponse struct {
	OK      bool             `json:"ok"`
	Entry   *ledgerEntryView `json:"entry,omitempty"`
	Warning string           `json:"warning,omitempty"`
}
