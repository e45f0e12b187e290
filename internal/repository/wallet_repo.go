package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/models"
)

// WalletRepository is keyed-record storage for wallets. No business
// rules live here; validation happens in the transaction coordinator
// against freshly read rows.
type WalletRepository struct {
	db *database.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletColumns = "family_id, member_id, legacy_balance, spending_balance, savings_balance, minutes, locked, version, updated_at"

func scanWallet(row *sql.Row) (*models.Wallet, error) {
	var w models.Wallet
	var legacy, spending, savings string
	var updatedAt int64
	err := row.Scan(
		&w.FamilyID,
		&w.MemberID,
		&legacy,
		&spending,
		&savings,
		&w.Minutes,
		&w.Locked,
		&w.Version,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	if w.LegacyBalance, err = decimal.NewFromString(legacy); err != nil {
		return nil, fmt.Errorf("bad legacy balance %q: %w", legacy, err)
	}
	if w.SpendingBalance, err = decimal.NewFromString(spending); err != nil {
		return nil, fmt.Errorf("bad spending balance %q: %w", spending, err)
	}
	if w.SavingsBalance, err = decimal.NewFromString(savings); err != nil {
		return nil, fmt.Errorf("bad savings balance %q: %w", savings, err)
	}
	w.UpdatedAt = time.Unix(updatedAt, 0)
	return &w, nil
}

// CreateWallet inserts a wallet row
func (r *WalletRepository) CreateWallet(ctx context.Context, q database.DBTX, w *models.Wallet) error {
	query := "INSERT INTO wallets (" + walletColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := q.ExecContext(ctx, query,
		w.FamilyID, w.MemberID,
		models.MoneyString(w.LegacyBalance),
		models.MoneyString(w.SpendingBalance),
		models.MoneyString(w.SavingsBalance),
		w.Minutes, w.Locked, w.Version, w.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// GetWallet reads a wallet through q, which may be a transaction
func (r *WalletRepository) GetWallet(ctx context.Context, q database.DBTX, familyID, memberID string) (*models.Wallet, error) {
	query := "SELECT " + walletColumns + " FROM wallets WHERE family_id = ? AND member_id = ?"
	return scanWallet(q.QueryRowContext(ctx, query, familyID, memberID))
}

// DB exposes the underlying connection for non-transactional reads
func (r *WalletRepository) DB() database.DBTX { return r.db }

// UpdateWalletCAS writes w guarded by its previous version. Returns
// false when another writer got there first; the caller retries the
// whole read-validate-write unit.
func (r *WalletRepository) UpdateWalletCAS(ctx context.Context, q database.DBTX, w *models.Wallet, prevVersion int64) (bool, error) {
	query := `
		UPDATE wallets
		SET legacy_balance = ?, spending_balance = ?, savings_balance = ?,
		    minutes = ?, locked = ?, version = ?, updated_at = ?
		WHERE family_id = ? AND member_id = ? AND version = ?
	`
	result, err := q.ExecContext(ctx, query,
		models.MoneyString(w.LegacyBalance),
		models.MoneyString(w.SpendingBalance),
		models.MoneyString(w.SavingsBalance),
		w.Minutes, w.Locked, prevVersion+1, w.UpdatedAt.Unix(),
		w.FamilyID, w.MemberID, prevVersion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update wallet: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	w.Version = prevVersion + 1
	return true, nil
}

// PutWallet overwrites a wallet unconditionally (admin reset)
func (r *WalletRepository) PutWallet(ctx context.Context, q database.DBTX, w *models.Wallet) error {
	query := `
		UPDATE wallets
		SET legacy_balance = ?, spending_balance = ?, savings_balance = ?,
		    minutes = ?, locked = ?, version = version + 1, updated_at = ?
		WHERE family_id = ? AND member_id = ?
	`
	result, err := q.ExecContext(ctx, query,
		models.MoneyString(w.LegacyBalance),
		models.MoneyString(w.SpendingBalance),
		models.MoneyString(w.SavingsBalance),
		w.Minutes, w.Locked, w.UpdatedAt.Unix(),
		w.FamilyID, w.MemberID,
	)
	if err != nil {
		return fmt.Errorf("failed to put wallet: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("wallet for member %s: %w", w.MemberID, models.ErrNotFound)
	}
	return nil
}
