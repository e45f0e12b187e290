package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily inserts a new family with its catalog document and the
// hash of its one-time bootstrap secret
func (r *FamilyRepository) CreateFamily(ctx context.Context, id, name, config, secretHash string, now time.Time) (*models.Family, error) {
	query := "INSERT INTO families (id, name, config, bootstrap_secret_hash, chain_suspect, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, id, name, config, secretHash, false, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return &models.Family{
		ID:                  id,
		Name:                name,
		Config:              config,
		BootstrapSecretHash: secretHash,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// GetFamily retrieves a family by ID
func (r *FamilyRepository) GetFamily(ctx context.Context, id string) (*models.Family, error) {
	query := "SELECT id, name, config, bootstrap_secret_hash, chain_suspect, created_at, updated_at FROM families WHERE id = ?"

	var f models.Family
	var createdAt, updatedAt int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID,
		&f.Name,
		&f.Config,
		&f.BootstrapSecretHash,
		&f.ChainSuspect,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	f.CreatedAt = time.Unix(createdAt, 0)
	f.UpdatedAt = time.Unix(updatedAt, 0)
	return &f, nil
}

// UpdateConfig replaces a family's catalog document
func (r *FamilyRepository) UpdateConfig(ctx context.Context, id, config string, now time.Time) error {
	query := "UPDATE families SET config = ?, updated_at = ? WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, config, now.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update family config: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("family %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// SetChainSuspect marks or clears the family's ledger-suspect flag
func (r *FamilyRepository) SetChainSuspect(ctx context.Context, id string, suspect bool, now time.Time) error {
	query := "UPDATE families SET chain_suspect = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, suspect, now.Unix(), id); err != nil {
		return fmt.Errorf("failed to set chain suspect flag: %w", err)
	}
	return nil
}
