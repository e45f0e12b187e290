package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/models"
)

// LedgerRepository is append-only storage for a family's hash chain.
// Rows are never updated or deleted; the (family_id, seq) primary key
// rejects concurrent appends that computed the same predecessor.
type LedgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = "family_id, seq, ts, actor_id, target_id, event_type, payload, canonical_payload, prev_hash, hash"

// DB exposes the underlying connection
func (r *LedgerRepository) DB() *database.DB { return r.db }

// InsertEntry appends one entry. The caller assigns Seq.
func (r *LedgerRepository) InsertEntry(ctx context.Context, q database.DBTX, e *models.LedgerEntry) error {
	query := "INSERT INTO ledger_entries (" + ledgerColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := q.ExecContext(ctx, query,
		e.FamilyID, e.Seq, e.Ts, e.ActorID, e.TargetID,
		e.EventType, e.Payload, e.CanonicalPayload, e.PrevHash, e.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// LastEntry returns the highest-seq entry for a family, or nil when
// the chain is empty.
func (r *LedgerRepository) LastEntry(ctx context.Context, q database.DBTX, familyID string) (*models.LedgerEntry, error) {
	query := "SELECT " + ledgerColumns + " FROM ledger_entries WHERE family_id = ? ORDER BY seq DESC LIMIT 1"
	e, err := scanLedgerEntry(q.QueryRowContext(ctx, query, familyID))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEntries returns a family's chain in seq order from genesis
func (r *LedgerRepository) ListEntries(ctx context.Context, familyID string) ([]models.LedgerEntry, error) {
	query := "SELECT " + ledgerColumns + " FROM ledger_entries WHERE family_id = ? ORDER BY seq ASC"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(
			&e.FamilyID, &e.Seq, &e.Ts, &e.ActorID, &e.TargetID,
			&e.EventType, &e.Payload, &e.CanonicalPayload, &e.PrevHash, &e.Hash,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountEntries returns the chain length for a family
func (r *LedgerRepository) CountEntries(ctx context.Context, familyID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM ledger_entries WHERE family_id = ?"
	if err := r.db.QueryRowContext(ctx, query, familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

func scanLedgerEntry(row *sql.Row) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(
		&e.FamilyID, &e.Seq, &e.Ts, &e.ActorID, &e.TargetID,
		&e.EventType, &e.Payload, &e.CanonicalPayload, &e.PrevHash, &e.Hash,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}
	return &e, nil
}
