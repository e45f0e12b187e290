package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/models"
)

// MemberRepository handles database operations for family members
type MemberRepository struct {
	db *database.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *database.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// CreateMember inserts a member row
func (r *MemberRepository) CreateMember(ctx context.Context, q database.DBTX, m *models.Member) error {
	query := "INSERT INTO members (family_id, id, name, role, access_code_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := q.ExecContext(ctx, query, m.FamilyID, m.ID, m.Name, m.Role, m.AccessCodeHash, m.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by family and id
func (r *MemberRepository) GetMember(ctx context.Context, familyID, memberID string) (*models.Member, error) {
	query := "SELECT family_id, id, name, role, access_code_hash, created_at FROM members WHERE family_id = ? AND id = ?"

	var m models.Member
	var createdAt int64
	err := r.db.QueryRowContext(ctx, query, familyID, memberID).Scan(
		&m.FamilyID,
		&m.ID,
		&m.Name,
		&m.Role,
		&m.AccessCodeHash,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	m.CreatedAt = time.Unix(createdAt, 0)
	return &m, nil
}

// ListMembers retrieves a family's members, optionally filtered by role
func (r *MemberRepository) ListMembers(ctx context.Context, familyID, role string) ([]models.Member, error) {
	query := "SELECT family_id, id, name, role, access_code_hash, created_at FROM members WHERE family_id = ?"
	args := []any{familyID}
	if role != "" {
		query += " AND role = ?"
		args = append(args, role)
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		var createdAt int64
		if err := rows.Scan(&m.FamilyID, &m.ID, &m.Name, &m.Role, &m.AccessCodeHash, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountAdmins returns the number of admin members in a family
func (r *MemberRepository) CountAdmins(ctx context.Context, familyID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM members WHERE family_id = ? AND role = ?"
	if err := r.db.QueryRowContext(ctx, query, familyID, models.RoleAdmin).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

// CountMembers returns the number of members in a family
func (r *MemberRepository) CountMembers(ctx context.Context, familyID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM members WHERE family_id = ?"
	if err := r.db.QueryRowContext(ctx, query, familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// DeleteMember removes a member and their wallet and session rows
func (r *MemberRepository) DeleteMember(ctx context.Context, q database.DBTX, familyID, memberID string) error {
	for _, table := range []string{"members", "wallets", "sessions"} {
		col := "id"
		if table != "members" {
			col = "member_id"
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE family_id = ? AND %s = ?", table, col)
		if _, err := q.ExecContext(ctx, query, familyID, memberID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return nil
}

// SetAccessCodeHash stores a member's bcrypt access-code hash
func (r *MemberRepository) SetAccessCodeHash(ctx context.Context, familyID, memberID, hash string) error {
	query := "UPDATE members SET access_code_hash = ? WHERE family_id = ? AND id = ?"
	result, err := r.db.ExecContext(ctx, query, hash, familyID, memberID)
	if err != nil {
		return fmt.Errorf("failed to set access code: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}
	return nil
}
