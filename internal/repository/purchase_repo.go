package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/models"
)

// PurchaseRepository stores denormalized purchase receipts
type PurchaseRepository struct {
	db *database.DB
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *database.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// InsertPurchase writes a receipt. Runs inside the same transaction as
// the wallet debit it describes.
func (r *PurchaseRepository) InsertPurchase(ctx context.Context, q database.DBTX, p *models.PurchaseRecord) error {
	query := "INSERT INTO purchases (id, family_id, member_id, ts, type, label, cost, extra) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := q.ExecContext(ctx, query,
		p.ID, p.FamilyID, p.MemberID, p.Ts.Unix(),
		p.Type, p.Label, models.MoneyString(p.Cost), p.Extra,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	return nil
}

// ListByMember returns a member's receipts, newest first
func (r *PurchaseRepository) ListByMember(ctx context.Context, familyID, memberID string, limit int) ([]models.PurchaseRecord, error) {
	query := `
		SELECT id, family_id, member_id, ts, type, label, cost, extra
		FROM purchases
		WHERE family_id = ? AND member_id = ?
		ORDER BY ts DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, familyID, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var records []models.PurchaseRecord
	for rows.Next() {
		var p models.PurchaseRecord
		var ts int64
		var cost string
		if err := rows.Scan(&p.ID, &p.FamilyID, &p.MemberID, &ts, &p.Type, &p.Label, &cost, &p.Extra); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		p.Ts = time.Unix(ts, 0)
		if p.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("bad purchase cost %q: %w", cost, err)
		}
		records = append(records, p)
	}
	return records, rows.Err()
}
