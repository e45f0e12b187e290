package service

import (
	"context"
	"fmt"
	"time"

	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/repository"
)

// TimerService recomputes elapsed screen time on demand. Minutes decay
// purely by wall-clock elapsed time; there is no background ticker, so
// Reconcile must run before every balance- or minute-affecting
// operation and before any state snapshot is returned.
type TimerService struct {
	db          *database.DB
	walletRepo  *repository.WalletRepository
	sessionRepo *repository.SessionRepository
	clock       clock.Clock
	maxRetries  int
}

// NewTimerService creates a timer reconciler
func NewTimerService(db *database.DB, walletRepo *repository.WalletRepository, sessionRepo *repository.SessionRepository, clk clock.Clock, maxRetries int) *TimerService {
	return &TimerService{
		db:          db,
		walletRepo:  walletRepo,
		sessionRepo: sessionRepo,
		clock:       clk,
		maxRetries:  maxRetries,
	}
}

// Reconcile drains whole elapsed minutes from the member's wallet and
// advances the session start by exactly the seconds those minutes
// cover, so fractional elapsed time carries into the next call. A
// session whose minutes reach zero is deactivated. Calling twice with
// no wall-clock movement in between performs zero writes.
func (s *TimerService) Reconcile(ctx context.Context, familyID, memberID string) error {
	// Cheap pre-check outside the transaction; the decision values are
	// re-read inside it.
	sess, err := s.sessionRepo.GetSession(ctx, s.sessionRepo.DB(), familyID, memberID)
	if err != nil {
		return err
	}
	if sess == nil || !sess.Active || sess.StartedAt == nil {
		return nil
	}
	if s.elapsedMinutes(sess.StartedAt) == 0 {
		return nil
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		applied, err := s.reconcileOnce(ctx, familyID, memberID)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("reconcile for member %s: %w", memberID, models.ErrContention)
}

func (s *TimerService) elapsedMinutes(startedAt *time.Time) int {
	elapsedSeconds := int(s.clock.Now().Unix() - startedAt.Unix())
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	return elapsedSeconds / 60
}

// reconcileOnce runs one read-validate-write pass. Returns false when
// a CAS conflict means the whole unit must be retried.
func (s *TimerService) reconcileOnce(ctx context.Context, familyID, memberID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sess, err := s.sessionRepo.GetSession(ctx, tx, familyID, memberID)
	if err != nil {
		return false, err
	}
	if sess == nil || !sess.Active || sess.StartedAt == nil {
		return true, nil
	}

	elapsed := s.elapsedMinutes(sess.StartedAt)
	if elapsed == 0 {
		return true, nil
	}

	wallet, err := s.walletRepo.GetWallet(ctx, tx, familyID, memberID)
	if err != nil {
		return false, err
	}
	if wallet == nil {
		return true, nil
	}

	now := s.clock.Now()

	newMinutes := wallet.Minutes - elapsed
	if newMinutes < 0 {
		newMinutes = 0
	}
	walletVersion := wallet.Version
	wallet.Minutes = newMinutes
	wallet.UpdatedAt = now
	ok, err := s.walletRepo.UpdateWalletCAS(ctx, tx, wallet, walletVersion)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	// Advance by exactly the charged seconds, never to "now", so
	// sub-minute elapsed time is not lost across repeated calls.
	newStart := sess.StartedAt.Add(time.Duration(elapsed) * time.Minute)
	sessVersion := sess.Version
	sess.StartedAt = &newStart
	if newMinutes == 0 {
		sess.Active = false
		ended := now
		sess.EndedAt = &ended
	}
	sess.UpdatedAt = now
	ok, err = s.sessionRepo.UpdateSessionCAS(ctx, tx, sess, sessVersion)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit reconcile: %w", err)
	}
	return true, nil
}
