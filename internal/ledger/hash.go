package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeHash derives an entry's hash from its own fields. The input
// tuple and separator are persisted vocabulary; changing either breaks
// verification of every existing chain.
func ComputeHash(ts int64, actorID, targetID, eventType, canonicalPayload, prevHash string) string {
	s := fmt.Sprintf("%d|%s|%s|%s|%s|%s", ts, actorID, targetID, eventType, canonicalPayload, prevHash)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
