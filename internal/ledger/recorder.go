package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/repository"
)

const appendMaxRetries = 5

// Recorder appends business events to a family's hash chain.
//
// Appends are strictly ordered per family: the next seq and the
// predecessor hash are read in the same transaction that inserts the
// new entry, and an in-process per-family mutex keeps concurrent
// appenders from burning retries against the (family_id, seq) primary
// key. A second process racing on the same chain loses the insert and
// retries with the fresh predecessor.
type Recorder struct {
	ledgerRepo *repository.LedgerRepository
	clock      clock.Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRecorder creates a ledger recorder
func NewRecorder(ledgerRepo *repository.LedgerRepository, clk clock.Clock) *Recorder {
	return &Recorder{
		ledgerRepo: ledgerRepo,
		clock:      clk,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (r *Recorder) familyLock(familyID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[familyID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[familyID] = l
	}
	return l
}

// Append records one event. Payload is one of the variant structs in
// payload.go; it is stored both as plain JSON and in its canonical
// form, and the hash covers the canonical form.
func (r *Recorder) Append(ctx context.Context, familyID, actorID, targetID, eventType string, payload any) (*models.LedgerEntry, error) {
	plain, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	canonical, err := EncodeCanonical(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}

	lock := r.familyLock(familyID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < appendMaxRetries; attempt++ {
		entry, err := r.appendOnce(ctx, familyID, actorID, targetID, eventType, string(plain), canonical)
		if err == nil {
			return entry, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("ledger append for family %s: %w (%v)", familyID, models.ErrContention, lastErr)
}

func (r *Recorder) appendOnce(ctx context.Context, familyID, actorID, targetID, eventType, plain, canonical string) (*models.LedgerEntry, error) {
	tx, err := r.ledgerRepo.DB().BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	last, err := r.ledgerRepo.LastEntry(ctx, tx, familyID)
	if err != nil {
		return nil, err
	}

	prevHash := models.GenesisHash
	var seq int64 = 1
	if last != nil {
		prevHash = last.Hash
		seq = last.Seq + 1
	}

	ts := r.clock.Now().Unix()
	entry := &models.LedgerEntry{
		FamilyID:         familyID,
		Seq:              seq,
		Ts:               ts,
		ActorID:          actorID,
		TargetID:         targetID,
		EventType:        eventType,
		Payload:          plain,
		CanonicalPayload: canonical,
		PrevHash:         prevHash,
		Hash:             ComputeHash(ts, actorID, targetID, eventType, canonical, prevHash),
	}

	if err := r.ledgerRepo.InsertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger append: %w", err)
	}
	return entry, nil
}
