package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/models"
)

// SessionRepository is keyed-record storage for screen-time sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = "family_id, member_id, active, mode, started_at, ended_at, version, updated_at"

func scanSession(row *sql.Row) (*models.Session, error) {
	var s models.Session
	var mode sql.NullString
	var startedAt, endedAt sql.NullInt64
	var updatedAt int64
	err := row.Scan(
		&s.FamilyID,
		&s.MemberID,
		&s.Active,
		&mode,
		&startedAt,
		&endedAt,
		&s.Version,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	s.Mode = mode.String
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		s.StartedAt = &t
	}
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		s.EndedAt = &t
	}
	s.UpdatedAt = time.Unix(updatedAt, 0)
	return &s, nil
}

func nullUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// CreateSession inserts a session row
func (r *SessionRepository) CreateSession(ctx context.Context, q database.DBTX, s *models.Session) error {
	query := "INSERT INTO sessions (" + sessionColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := q.ExecContext(ctx, query,
		s.FamilyID, s.MemberID, s.Active, s.Mode,
		nullUnix(s.StartedAt), nullUnix(s.EndedAt),
		s.Version, s.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession reads a session through q, which may be a transaction
func (r *SessionRepository) GetSession(ctx context.Context, q database.DBTX, familyID, memberID string) (*models.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE family_id = ? AND member_id = ?"
	return scanSession(q.QueryRowContext(ctx, query, familyID, memberID))
}

// DB exposes the underlying connection for non-transactional reads
func (r *SessionRepository) DB() database.DBTX { return r.db }

// UpdateSessionCAS writes s guarded by its previous version
func (r *SessionRepository) UpdateSessionCAS(ctx context.Context, q database.DBTX, s *models.Session, prevVersion int64) (bool, error) {
	query := `
		UPDATE sessions
		SET active = ?, mode = ?, started_at = ?, ended_at = ?, version = ?, updated_at = ?
		WHERE family_id = ? AND member_id = ? AND version = ?
	`
	result, err := q.ExecContext(ctx, query,
		s.Active, s.Mode, nullUnix(s.StartedAt), nullUnix(s.EndedAt),
		prevVersion+1, s.UpdatedAt.Unix(),
		s.FamilyID, s.MemberID, prevVersion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	s.Version = prevVersion + 1
	return true, nil
}

// PutSession overwrites a session unconditionally (admin reset)
func (r *SessionRepository) PutSession(ctx context.Context, q database.DBTX, s *models.Session) error {
	query := `
		UPDATE sessions
		SET active = ?, mode = ?, started_at = ?, ended_at = ?, version = version + 1, updated_at = ?
		WHERE family_id = ? AND member_id = ?
	`
	result, err := q.ExecContext(ctx, query,
		s.Active, s.Mode, nullUnix(s.StartedAt), nullUnix(s.EndedAt), s.UpdatedAt.Unix(),
		s.FamilyID, s.MemberID,
	)
	if err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session for member %s: %w", s.MemberID, models.ErrNotFound)
	}
	return nil
}
