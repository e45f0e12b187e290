package ledger

import (
	"context"
	"fmt"

	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/repository"
)

// ChainReport is the result of walking a family's chain from genesis
type ChainReport struct {
	Valid   bool `json:"valid"`
	Entries int  `json:"entries"`
	// BrokenAtSeq is the seq of the first divergent entry; 0 when valid
	BrokenAtSeq int64  `json:"broken_at_seq,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Verifier re-checks a family's hash chain
type Verifier struct {
	ledgerRepo *repository.LedgerRepository
}

// NewVerifier creates a chain verifier
func NewVerifier(ledgerRepo *repository.LedgerRepository) *Verifier {
	return &Verifier{ledgerRepo: ledgerRepo}
}

// VerifyChain walks all entries in seq order, recomputing every hash
// and checking prev-hash linkage. It reports the first divergence; it
// never repairs anything.
func (v *Verifier) VerifyChain(ctx context.Context, familyID string) (*ChainReport, error) {
	entries, err := v.ledgerRepo.ListEntries(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	report := &ChainReport{Valid: true, Entries: len(entries)}
	prevHash := models.GenesisHash

	for _, e := range entries {
		if e.PrevHash != prevHash {
			report.Valid = false
			report.BrokenAtSeq = e.Seq
			report.Reason = "prev_hash does not match predecessor"
			return report, nil
		}

		want := ComputeHash(e.Ts, e.ActorID, e.TargetID, e.EventType, e.CanonicalPayload, e.PrevHash)
		if e.Hash != want {
			report.Valid = false
			report.BrokenAtSeq = e.Seq
			report.Reason = "stored hash does not match recomputed hash"
			return report, nil
		}

		prevHash = e.Hash
	}

	return report, nil
}
