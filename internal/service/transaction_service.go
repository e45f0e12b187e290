package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/WeCr8/goodbodybucks/internal/catalog"
	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/ledger"
	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/repository"
)

// Result reports a committed operation. Warning is set when the
// business effect committed but the audit append failed; the mutation
// is the source of truth and is never rolled back for that.
type Result struct {
	Entry   *models.LedgerEntry
	Warning string
}

// TransactionService is the atomic read-validate-write protocol behind
// every balance and session mutation. Each operation reads the current
// rows inside one transaction, validates its preconditions against
// those freshly read values, writes the new state guarded by row
// versions, and retries the whole unit on conflict. The ledger append
// happens after commit and is deliberately not part of the same
// transaction.
type TransactionService struct {
	db           *database.DB
	familyRepo   *repository.FamilyRepository
	memberRepo   *repository.MemberRepository
	walletRepo   *repository.WalletRepository
	sessionRepo  *repository.SessionRepository
	purchaseRepo *repository.PurchaseRepository
	recorder     *ledger.Recorder
	timer        *TimerService
	clock        clock.Clock
	maxRetries   int
}

// NewTransactionService creates the transaction coordinator
func NewTransactionService(
	db *database.DB,
	familyRepo *repository.FamilyRepository,
	memberRepo *repository.MemberRepository,
	walletRepo *repository.WalletRepository,
	sessionRepo *repository.SessionRepository,
	purchaseRepo *repository.PurchaseRepository,
	recorder *ledger.Recorder,
	timer *TimerService,
	clk clock.Clock,
	maxRetries int,
) *TransactionService {
	return &TransactionService{
		db:           db,
		familyRepo:   familyRepo,
		memberRepo:   memberRepo,
		walletRepo:   walletRepo,
		sessionRepo:  sessionRepo,
		purchaseRepo: purchaseRepo,
		recorder:     recorder,
		timer:        timer,
		clock:        clk,
		maxRetries:   maxRetries,
	}
}

// catalogFor loads and parses a family's catalog document
func (s *TransactionService) catalogFor(ctx context.Context, familyID string) (*catalog.Catalog, error) {
	family, err := s.familyRepo.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("family %s: %w", familyID, models.ErrNotFound)
	}
	return catalog.Parse(family.Config)
}

func (s *TransactionService) requireMember(ctx context.Context, familyID, memberID string) (*models.Member, error) {
	m, err := s.memberRepo.GetMember(ctx, familyID, memberID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}
	return m, nil
}

// logLedgerWarning notes a ledger append that failed after its state
// mutation already committed. The mutation stands; only the audit
// trail is short one entry.
func logLedgerWarning(eventType, familyID string, err error) {
	log.Printf("Warning: ledger append failed after committed %s for family %s: %v", eventType, familyID, err)
}

// record appends the audit entry for a committed mutation. Failures
// are logged and surfaced as a warning, never rolled back.
func (s *TransactionService) record(ctx context.Context, familyID, actorID, targetID, eventType string, payload any) *Result {
	entry, err := s.recorder.Append(ctx, familyID, actorID, targetID, eventType, payload)
	if err != nil {
		logLedgerWarning(eventType, familyID, err)
		return &Result{Warning: fmt.Sprintf("audit entry for %s could not be recorded", eventType)}
	}
	return &Result{Entry: entry}
}

// memberTxFn mutates the freshly read wallet/session and reports which
// rows changed. Returning a domain error aborts with no writes.
type memberTxFn func(tx *database.Tx, w *models.Wallet, sess *models.Session) (walletChanged, sessionChanged bool, err error)

// runMemberTx executes one read-validate-write unit against a member's
// wallet/session pair, retrying the whole unit on version conflicts up
// to the retry budget, then failing with ErrContention.
func (s *TransactionService) runMemberTx(ctx context.Context, familyID, memberID string, fn memberTxFn) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		committed, err := s.runMemberTxOnce(ctx, familyID, memberID, fn)
		if err != nil {
			return err
		}
		if committed {
			return nil
		}
	}
	return fmt.Errorf("member %s: %w", memberID, models.ErrContention)
}

func (s *TransactionService) runMemberTxOnce(ctx context.Context, familyID, memberID string, fn memberTxFn) (bool, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	wallet, err := s.walletRepo.GetWallet(ctx, tx, familyID, memberID)
	if err != nil {
		return false, err
	}
	sess, err := s.sessionRepo.GetSession(ctx, tx, familyID, memberID)
	if err != nil {
		return false, err
	}
	if wallet == nil || sess == nil {
		return false, fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}

	walletVersion := wallet.Version
	sessVersion := sess.Version

	walletChanged, sessionChanged, err := fn(tx, wallet, sess)
	if err != nil {
		return false, err
	}

	now := s.clock.Now()
	if walletChanged {
		wallet.UpdatedAt = now
		ok, err := s.walletRepo.UpdateWalletCAS(ctx, tx, wallet, walletVersion)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if sessionChanged {
		sess.UpdatedAt = now
		ok, err := s.sessionRepo.UpdateSessionCAS(ctx, tx, sess, sessVersion)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// PurchaseScreen buys a screen package: debits spending and legacy
// balances, credits the package minutes, and writes the receipt in the
// same transaction.
func (s *TransactionService) PurchaseScreen(ctx context.Context, familyID, memberID, packageID string) (*Result, error) {
	cat, err := s.catalogFor(ctx, familyID)
	if err != nil {
		return nil, err
	}
	pkg, err := cat.ScreenPackage(packageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, familyID, memberID); err != nil {
		return nil, err
	}
	if err := s.timer.Reconcile(ctx, familyID, memberID); err != nil {
		return nil, err
	}

	cost := models.Round2(pkg.Cost)
	err = s.runMemberTx(ctx, familyID, memberID, func(tx *database.Tx, w *models.Wallet, _ *models.Session) (bool, bool, error) {
		if w.Locked {
			return false, false, fmt.Errorf("screens are locked: %w", models.ErrInvalidState)
		}
		if w.SpendingBalance.LessThan(cost) {
			return false, false, fmt.Errorf("not enough GB$: %w", models.ErrInvalidState)
		}

		w.SpendingBalance = models.Round2(w.SpendingBalance.Sub(cost))
		w.LegacyBalance = models.Round2(w.LegacyBalance.Sub(cost))
		w.Minutes += pkg.Minutes

		extra, _ := json.Marshal(map[string]int{"minutes": pkg.Minutes})
		receipt := &models.PurchaseRecord{
			ID:       uuid.New().String(),
			FamilyID: familyID,
			MemberID: memberID,
			Ts:       s.clock.Now(),
			Type:     models.PurchaseTypeScreen,
			Label:    pkg.Label,
			Cost:     cost,
			Extra:    string(extra),
		}
		if err := s.purchaseRepo.InsertPurchase(ctx, tx, receipt); err != nil {
			return false, false, err
		}
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	payload := ledger.PurchaseScreenPayload{Package: pkg, Cost: models.MoneyString(cost)}
	return s.record(ctx, familyID, memberID, memberID, models.EventPurchaseScreen, payload), nil
}

// PurchaseFood buys a food item: debits spending and legacy balances
// and writes the receipt in the same transaction.
func (s *TransactionService) PurchaseFood(ctx context.Context, familyID, memberID, itemID string) (*Result, error) {
	cat, err := s.catalogFor(ctx, familyID)
	if err != nil {
		return nil, err
	}
	item, err := cat.FoodItem(itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, familyID, memberID); err != nil {
		return nil, err
	}
	if err := s.timer.Reconcile(ctx, familyID, memberID); err != nil {
		return nil, err
	}

	cost := models.Round2(item.Cost)
	err = s.runMemberTx(ctx, familyID, memberID, func(tx *database.Tx, w *models.Wallet, _ *models.Session) (bool, bool, error) {
		if w.SpendingBalance.LessThan(cost) {
			return false, false, fmt.Errorf("not enough GB$: %w", models.ErrInvalidState)
		}

		w.SpendingBalance = models.Round2(w.SpendingBalance.Sub(cost))
		w.LegacyBalance = models.Round2(w.LegacyBalance.Sub(cost))

		extra, _ := json.Marshal(map[string]string{"category": item.Category})
		receipt := &models.PurchaseRecord{
			ID:       uuid.New().String(),
			FamilyID: familyID,
			MemberID: memberID,
			Ts:       s.clock.Now(),
			Type:     models.PurchaseTypeFood,
			Label:    item.Label,
			Cost:     cost,
			Extra:    string(extra),
		}
		if err := s.purchaseRepo.InsertPurchase(ctx, tx, receipt); err != nil {
			return false, false, err
		}
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	payload := ledger.PurchaseFoodPayload{Item: item, Cost: models.MoneyString(cost)}
	return s.record(ctx, familyID, memberID, memberID, models.EventPurchaseFood, payload), nil
}

// StartSession begins a screen-time session for a member
func (s *TransactionService) StartSession(ctx context.Context, familyID, memberID, mode string) (*Result, error) {
	if mode == "" {
		mode = "screen"
	}
	if _, err := s.requireMember(ctx, familyID, memberID); err != nil {
		return nil, err
	}
	if err := s.timer.Reconcile(ctx, familyID, memberID); err != nil {
		return nil, err
	}

	err := s.runMemberTx(ctx, familyID, memberID, func(_ *database.Tx, w *models.Wallet, sess *models.Session) (bool, bool, error) {
		if w.Locked {
			return false, false, fmt.Errorf("screens are locked: %w", models.ErrInvalidState)
		}
		if w.Minutes <= 0 {
			return false, false, fmt.Errorf("no minutes available: %w", models.ErrInvalidState)
		}
		if sess.Active {
			return false, false, fmt.Errorf("session already running: %w", models.ErrInvalidState)
		}

		now := s.clock.Now()
		sess.Active = true
		sess.Mode = mode
		sess.StartedAt = &now
		sess.EndedAt = nil
		return false, true, nil
	})
	if err != nil {
		return nil, err
	}

	return s.record(ctx, familyID, memberID, memberID, models.EventSessionStart, ledger.SessionStartPayload{Mode: mode}), nil
}

// StopSession ends the target member's active session. ActorID is the
// principal who asked (the member or an admin).
func (s *TransactionService) StopSession(ctx context.Context, familyID, actorID, memberID string) (*Result, error) {
	if _, err := s.requireMember(ctx, familyID, memberID); err != nil {
		return nil, err
	}
	if err := s.timer.Reconcile(ctx, familyID, memberID); err != nil {
		return nil, err
	}

	err := s.runMemberTx(ctx, familyID, memberID, func(_ *database.Tx, _ *models.Wallet, sess *models.Session) (bool, bool, error) {
		if !sess.Active {
			return false, false, fmt.Errorf("no active session: %w", models.ErrInvalidState)
		}

		now := s.clock.Now()
		sess.Active = false
		sess.EndedAt = &now
		return false, true, nil
	})
	if err != nil {
		return nil, err
	}

	return s.record(ctx, familyID, actorID, memberID, models.EventSessionStop, ledger.SessionStopPayload{StoppedBy: actorID}), nil
}

// DailyAllotment credits the legacy balance and splits the amount into
// spending and savings per the family's savings policy. The rounding
// remainder always favors spending.
func (s *TransactionService) DailyAllotment(ctx context.Context, familyID, actorID, memberID string, amount decimal.Decimal) (*Result, error) {
	amount = models.Round2(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("allotment amount must be positive: %w", models.ErrInvalidState)
	}
	cat, err := s.catalogFor(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, familyID, memberID); err != nil {
		return nil, err
	}

	pct := 0
	if cat.Savings.Enabled {
		pct = cat.Savings.PercentageFor(memberID)
	}
	savingsShare := amount.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).RoundDown(2)
	spendingShare := models.Round2(amount.Sub(savingsShare))

	err = s.runMemberTx(ctx, familyID, memberID, func(_ *database.Tx, w *models.Wallet, _ *models.Session) (bool, bool, error) {
		w.LegacyBalance = models.Round2(w.LegacyBalance.Add(amount))
		w.SpendingBalance = models.Round2(w.SpendingBalance.Add(spendingShare))
		w.SavingsBalance = models.Round2(w.SavingsBalance.Add(savingsShare))
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	payload := ledger.DailyAllotmentPayload{
		Amount:         models.MoneyString(amount),
		SpendingShare:  models.MoneyString(spendingShare),
		SavingsShare:   models.MoneyString(savingsShare),
		SavingsPercent: pct,
		SavingsEnabled: cat.Savings.Enabled,
	}
	return s.record(ctx, familyID, actorID, memberID, models.EventDailyAllotment, payload), nil
}

// Reward credits a catalog reward's delta to the legacy balance only
func (s *TransactionService) Reward(ctx context.Context, familyID, actorID, memberID, actionID string) (*Result, error) {
	cat, err := s.catalogFor(ctx, familyID)
	if err != nil {
		return nil, err
	}
	action, err := cat.Reward(actionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, familyID, memberID); err != nil {
		return nil, err
	}

	delta := models.Round2(action.Delta)
	err = s.runMemberTx(ctx, familyID, memberID, func(_ *database.Tx, w *models.Wallet, _ *models.Session) (bool, bool, error) {
		w.LegacyBalance = models.Round2(w.LegacyBalance.Add(delta))
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	payload := ledger.RewardPayload{Action: action, Delta: models.MoneyString(delta)}
	return s.record(ctx, familyID, actorID, memberID, models.EventReward, payload), nil
}

// ConsequenceTime applies a time consequence: a minutes delta (floored
// at zero), an absolute set, or a lock/unlock. Consequences that end
// screen time also deactivate a running session.
func (s *TransactionService) ConsequenceTime(ctx context.Context, familyID, actorID, memberID, consequenceID, note string) (*Result, error) {
	cat, err := s.catalogFor(ctx, familyID)
	if err != nil {
		return nil, err
	}
	c, err := cat.TimeConsequence(consequenceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, familyID, memberID); err != nil {
		return nil, err
	}
	if err := s.timer.Reconcile(ctx, familyID, memberID); err != nil {
		return nil, err
	}
	note = truncateNote(note)

	err = s.runMemberTx(ctx, familyID, memberID, func(_ *database.Tx, w *models.Wallet, sess *models.Session) (bool, bool, error) {
		if c.DeltaMinutes != nil {
			w.Minutes += *c.DeltaMinutes
			if w.Minutes < 0 {
				w.Minutes = 0
			}
		}
		if c.SetMinutes != nil {
			w.Minutes = *c.SetMinutes
		}
		if c.Lock != nil {
			w.Locked = *c.Lock
		}

		sessionChanged := false
		if c.EndsSession() && sess.Active {
			now := s.clock.Now()
			sess.Active = false
			sess.EndedAt = &now
			sessionChanged = true
		}
		return true, sessionChanged, nil
	})
	if err != nil {
		return nil, err
	}

	payload := ledger.ConsequenceTimePayload{Consequence: c, Note: note}
	return s.record(ctx, familyID, actorID, memberID, models.EventConsequenceTime, payload), nil
}

// ConsequenceMoney applies a money consequence to the legacy balance,
// floored at zero. The ledger records the configured delta, not the
// clamped effect.
func (s *TransactionService) ConsequenceMoney(ctx context.Context, familyID, actorID, memberID, consequenceID, note string) (*Result, error) {
	cat, err := s.catalogFor(ctx, familyID)
	if err != nil {
		return nil, err
	}
	c, err := cat.MoneyConsequence(consequenceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, familyID, memberID); err != nil {
		return nil, err
	}
	note = truncateNote(note)

	delta := models.Round2(c.Delta)
	err = s.runMemberTx(ctx, familyID, memberID, func(_ *database.Tx, w *models.Wallet, _ *models.Session) (bool, bool, error) {
		newBalance := models.Round2(w.LegacyBalance.Add(delta))
		if newBalance.IsNegative() {
			newBalance = decimal.Zero
		}
		w.LegacyBalance = newBalance
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	payload := ledger.ConsequenceMoneyPayload{Consequence: c, Delta: models.MoneyString(delta), Note: note}
	return s.record(ctx, familyID, actorID, memberID, models.EventConsequenceMoney, payload), nil
}

// TransferToSavings moves amount from spending to savings. Kids may
// move their own money; admins may move anyone's.
func (s *TransactionService) TransferToSavings(ctx context.Context, actor models.Principal, memberID string, amount decimal.Decimal) (*Result, error) {
	if !actor.IsAdmin() && actor.MemberID != memberID {
		return nil, fmt.Errorf("transfer for another member: %w", models.ErrForbidden)
	}
	amount = models.Round2(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("transfer amount must be positive: %w", models.ErrInvalidState)
	}
	if _, err := s.requireMember(ctx, actor.FamilyID, memberID); err != nil {
		return nil, err
	}

	err := s.runMemberTx(ctx, actor.FamilyID, memberID, func(_ *database.Tx, w *models.Wallet, _ *models.Session) (bool, bool, error) {
		if w.SpendingBalance.LessThan(amount) {
			return false, false, fmt.Errorf("not enough spending balance: %w", models.ErrInvalidState)
		}
		w.SpendingBalance = models.Round2(w.SpendingBalance.Sub(amount))
		w.SavingsBalance = models.Round2(w.SavingsBalance.Add(amount))
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	payload := ledger.TransferPayload{Amount: models.MoneyString(amount), InitiatedBy: actor.MemberID}
	return s.record(ctx, actor.FamilyID, actor.MemberID, memberID, models.EventTransferToSavings, payload), nil
}

// TransferToSpending moves amount from savings back to spending.
// Admin only.
func (s *TransactionService) TransferToSpending(ctx context.Context, actor models.Principal, memberID string, amount decimal.Decimal) (*Result, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("withdrawing savings: %w", models.ErrForbidden)
	}
	amount = models.Round2(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("transfer amount must be positive: %w", models.ErrInvalidState)
	}
	if _, err := s.requireMember(ctx, actor.FamilyID, memberID); err != nil {
		return nil, err
	}

	err := s.runMemberTx(ctx, actor.FamilyID, memberID, func(_ *database.Tx, w *models.Wallet, _ *models.Session) (bool, bool, error) {
		if w.SavingsBalance.LessThan(amount) {
			return false, false, fmt.Errorf("not enough savings balance: %w", models.ErrInvalidState)
		}
		w.SavingsBalance = models.Round2(w.SavingsBalance.Sub(amount))
		w.SpendingBalance = models.Round2(w.SpendingBalance.Add(amount))
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	payload := ledger.TransferPayload{Amount: models.MoneyString(amount), InitiatedBy: actor.MemberID}
	return s.record(ctx, actor.FamilyID, actor.MemberID, memberID, models.EventTransferToSpending, payload), nil
}

func truncateNote(note string) string {
	runes := []rune(note)
	if len(runes) > 120 {
		return string(runes[:120])
	}
	return note
}
