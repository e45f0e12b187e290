package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/WeCr8/goodbodybucks/internal/catalog"
	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/ledger"
	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/repository"
	"github.com/WeCr8/goodbodybucks/internal/security"
)

// FamilyService handles family lifecycle, membership, snapshots, and
// chain verification.
type FamilyService struct {
	db           *database.DB
	familyRepo   *repository.FamilyRepository
	memberRepo   *repository.MemberRepository
	walletRepo   *repository.WalletRepository
	sessionRepo  *repository.SessionRepository
	purchaseRepo *repository.PurchaseRepository
	ledgerRepo   *repository.LedgerRepository
	recorder     *ledger.Recorder
	verifier     *ledger.Verifier
	timer        *TimerService
	alerts       *AlertService
	clock        clock.Clock
}

// NewFamilyService creates a family service
func NewFamilyService(
	db *database.DB,
	familyRepo *repository.FamilyRepository,
	memberRepo *repository.MemberRepository,
	walletRepo *repository.WalletRepository,
	sessionRepo *repository.SessionRepository,
	purchaseRepo *repository.PurchaseRepository,
	ledgerRepo *repository.LedgerRepository,
	recorder *ledger.Recorder,
	verifier *ledger.Verifier,
	timer *TimerService,
	alerts *AlertService,
	clk clock.Clock,
) *FamilyService {
	return &FamilyService{
		db:           db,
		familyRepo:   familyRepo,
		memberRepo:   memberRepo,
		walletRepo:   walletRepo,
		sessionRepo:  sessionRepo,
		purchaseRepo: purchaseRepo,
		ledgerRepo:   ledgerRepo,
		recorder:     recorder,
		verifier:     verifier,
		timer:        timer,
		alerts:       alerts,
		clock:        clk,
	}
}

// SetupFamily creates a family with the default catalog and writes the
// genesis ledger entry. The returned secret authorizes bootstrap calls
// for this family; only its hash is stored, so this is the one chance
// to read it.
func (s *FamilyService) SetupFamily(ctx context.Context, name string) (*models.Family, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("family name required: %w", models.ErrInvalidInput)
	}

	config, err := catalog.Default().Encode()
	if err != nil {
		return nil, "", err
	}

	secret := uuid.New().String()
	secretHash, err := security.HashAccessCode(secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash bootstrap secret: %w", err)
	}

	family, err := s.familyRepo.CreateFamily(ctx, uuid.New().String(), name, config, secretHash, s.clock.Now())
	if err != nil {
		return nil, "", err
	}

	if _, err := s.recorder.Append(ctx, family.ID, "", "", models.EventGenesis, ledger.GenesisPayload{Note: "GENESIS"}); err != nil {
		return nil, "", fmt.Errorf("failed to write genesis entry: %w", err)
	}
	return family, secret, nil
}

// createMemberRecords inserts the member with a zeroed wallet and an
// inactive session, all in one transaction.
func (s *FamilyService) createMemberRecords(ctx context.Context, m *models.Member) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.clock.Now()
	if err := s.memberRepo.CreateMember(ctx, tx, m); err != nil {
		return err
	}
	if err := s.walletRepo.CreateWallet(ctx, tx, models.NewWallet(m.FamilyID, m.ID, now)); err != nil {
		return err
	}
	if err := s.sessionRepo.CreateSession(ctx, tx, models.NewSession(m.FamilyID, m.ID, now)); err != nil {
		return err
	}
	return tx.Commit()
}

// AddMember registers a member (admin action). An empty memberID gets
// a generated id; a non-empty accessCode is hashed for token issuance.
func (s *FamilyService) AddMember(ctx context.Context, actorID, familyID, memberID, name, role, accessCode string) (*models.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" || (role != models.RoleAdmin && role != models.RoleKid) {
		return nil, fmt.Errorf("name and role (admin|kid) required: %w", models.ErrInvalidInput)
	}
	family, err := s.familyRepo.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("family %s: %w", familyID, models.ErrNotFound)
	}
	if memberID == "" {
		memberID = uuid.New().String()
	}

	var codeHash string
	if accessCode != "" {
		if codeHash, err = security.HashAccessCode(accessCode); err != nil {
			return nil, fmt.Errorf("failed to hash access code: %w", err)
		}
	}

	m := &models.Member{
		FamilyID:       familyID,
		ID:             memberID,
		Name:           name,
		Role:           role,
		AccessCodeHash: codeHash,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.createMemberRecords(ctx, m); err != nil {
		return nil, err
	}

	if _, err := s.recorder.Append(ctx, familyID, actorID, memberID, models.EventAddMember, ledger.AddMemberPayload{Name: name, Role: role}); err != nil {
		logLedgerWarning(models.EventAddMember, familyID, err)
	}
	return m, nil
}

// Bootstrap registers a first-time principal: the first member becomes
// admin; a kid-pattern email registers a kid; explicit requests need an
// existing admin to exist. The caller must present the family's
// bootstrap secret issued at setup; without it the uid and email in
// the request are unverified claims.
func (s *FamilyService) Bootstrap(ctx context.Context, familyID, secret, uid, email, reqName, reqRole, accessCode string) (*models.Member, error) {
	family, err := s.familyRepo.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("family %s: %w", familyID, models.ErrNotFound)
	}
	if !security.CheckAccessCode(family.BootstrapSecretHash, secret) {
		return nil, fmt.Errorf("bootstrap secret rejected: %w", models.ErrForbidden)
	}

	if existing, err := s.memberRepo.GetMember(ctx, familyID, uid); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	memberCount, err := s.memberRepo.CountMembers(ctx, familyID)
	if err != nil {
		return nil, err
	}
	adminCount, err := s.memberRepo.CountAdmins(ctx, familyID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(reqName)
	var role, eventType, actorID string

	switch {
	case memberCount == 0:
		role = models.RoleAdmin
		eventType = models.EventBootstrapFirstAdmin
		if name == "" {
			name = "Admin"
		}

	case strings.HasSuffix(email, fmt.Sprintf(".%s@gbucks.local", familyID)):
		role = models.RoleKid
		eventType = models.EventBootstrapKid
		if name == "" {
			if i := strings.IndexByte(email, '.'); i > 0 {
				name = strings.ToUpper(email[:1]) + email[1:i]
			} else {
				name = "Kid"
			}
		}

	case reqRole == models.RoleAdmin:
		if adminCount == 0 {
			return nil, fmt.Errorf("cannot create admin without an existing admin: %w", models.ErrForbidden)
		}
		role = models.RoleAdmin
		eventType = models.EventBootstrapAdmin
		if actorID, err = s.firstAdminID(ctx, familyID); err != nil {
			return nil, err
		}
		if name == "" {
			name = "Admin"
		}

	case reqRole == models.RoleKid:
		role = models.RoleKid
		eventType = models.EventBootstrapKidExpl
		if actorID, err = s.firstAdminID(ctx, familyID); err != nil {
			return nil, err
		}
		if name == "" {
			name = "Kid"
		}

	default:
		return nil, fmt.Errorf("cannot determine bootstrap role: %w", models.ErrInvalidInput)
	}

	var codeHash string
	if accessCode != "" {
		if codeHash, err = security.HashAccessCode(accessCode); err != nil {
			return nil, fmt.Errorf("failed to hash access code: %w", err)
		}
	}

	m := &models.Member{
		FamilyID:       familyID,
		ID:             uid,
		Name:           name,
		Role:           role,
		AccessCodeHash: codeHash,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.createMemberRecords(ctx, m); err != nil {
		return nil, err
	}

	payload := ledger.BootstrapPayload{Name: name}
	if eventType == models.EventBootstrapKid {
		payload.Email = email
	}
	if _, err := s.recorder.Append(ctx, familyID, actorID, uid, eventType, payload); err != nil {
		logLedgerWarning(eventType, familyID, err)
	}
	return m, nil
}

// firstAdminID returns the oldest admin's id, or "" when the family has
// no admins. Explicit bootstrap events record it as their actor.
func (s *FamilyService) firstAdminID(ctx context.Context, familyID string) (string, error) {
	admins, err := s.memberRepo.ListMembers(ctx, familyID, models.RoleAdmin)
	if err != nil {
		return "", err
	}
	if len(admins) == 0 {
		return "", nil
	}
	return admins[0].ID, nil
}

// RemoveMember deletes a member with their wallet and session. The
// last admin cannot be removed.
func (s *FamilyService) RemoveMember(ctx context.Context, actorID, familyID, memberID string) error {
	m, err := s.memberRepo.GetMember(ctx, familyID, memberID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}

	if m.Role == models.RoleAdmin {
		admins, err := s.memberRepo.CountAdmins(ctx, familyID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return fmt.Errorf("cannot remove the last admin: %w", models.ErrInvalidState)
		}
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := s.memberRepo.DeleteMember(ctx, tx, familyID, memberID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal: %w", err)
	}

	if _, err := s.recorder.Append(ctx, familyID, actorID, memberID, models.EventRemoveMember, ledger.RemoveMemberPayload{Name: m.Name, Role: m.Role}); err != nil {
		logLedgerWarning(models.EventRemoveMember, familyID, err)
	}
	return nil
}

// ResetKid restores a kid's wallet and session to the given values.
// The spending balance mirrors the legacy balance; savings is zeroed.
func (s *FamilyService) ResetKid(ctx context.Context, actorID, familyID, kidID string, balance decimal.Decimal, minutes int, locked bool) error {
	m, err := s.memberRepo.GetMember(ctx, familyID, kidID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("member %s: %w", kidID, models.ErrNotFound)
	}
	if m.Role != models.RoleKid {
		return fmt.Errorf("only kids can be reset: %w", models.ErrInvalidState)
	}
	if minutes < 0 {
		minutes = 0
	}
	balance = models.Round2(balance)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.clock.Now()
	w := &models.Wallet{
		FamilyID:        familyID,
		MemberID:        kidID,
		LegacyBalance:   balance,
		SpendingBalance: balance,
		SavingsBalance:  decimal.Zero,
		Minutes:         minutes,
		Locked:          locked,
		UpdatedAt:       now,
	}
	if err := s.walletRepo.PutWallet(ctx, tx, w); err != nil {
		return err
	}
	if err := s.sessionRepo.PutSession(ctx, tx, models.NewSession(familyID, kidID, now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	payload := ledger.ResetKidPayload{
		Name:    m.Name,
		Balance: models.MoneyString(balance),
		Minutes: minutes,
		Locked:  locked,
	}
	if _, err := s.recorder.Append(ctx, familyID, actorID, kidID, models.EventResetKid, payload); err != nil {
		logLedgerWarning(models.EventResetKid, familyID, err)
	}
	return nil
}

// SessionState is a session's view inside a state snapshot
type SessionState struct {
	Active  bool   `json:"active"`
	Mode    string `json:"mode,omitempty"`
	StartTs *int64 `json:"start_ts"`
	EndTs   *int64 `json:"end_ts"`
}

// KidState is one kid's row in a state snapshot
type KidState struct {
	MemberID        string       `json:"member_id"`
	Name            string       `json:"name"`
	LegacyBalance   string       `json:"balance_gb"`
	SpendingBalance string       `json:"spending_gb"`
	SavingsBalance  string       `json:"savings_gb"`
	Minutes         int          `json:"minutes"`
	Locked          bool         `json:"locked"`
	Session         SessionState `json:"session"`
}

// StateSnapshot is the per-family view returned to clients, always
// taken after a reconcile pass so minutes reflect real elapsed time.
type StateSnapshot struct {
	Kids         []KidState          `json:"kids"`
	LatestLedger *models.LedgerEntry `json:"latest_ledger,omitempty"`
	ChainSuspect bool                `json:"chain_suspect"`
}

// State reconciles and snapshots the family. Admins see every kid;
// kids see themselves.
func (s *FamilyService) State(ctx context.Context, principal models.Principal) (*StateSnapshot, error) {
	family, err := s.familyRepo.GetFamily(ctx, principal.FamilyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("family %s: %w", principal.FamilyID, models.ErrNotFound)
	}

	var kids []models.Member
	if principal.IsAdmin() {
		if kids, err = s.memberRepo.ListMembers(ctx, principal.FamilyID, models.RoleKid); err != nil {
			return nil, err
		}
	} else {
		m, err := s.memberRepo.GetMember(ctx, principal.FamilyID, principal.MemberID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("member %s: %w", principal.MemberID, models.ErrNotFound)
		}
		kids = []models.Member{*m}
	}

	snapshot := &StateSnapshot{ChainSuspect: family.ChainSuspect}
	for _, kid := range kids {
		if err := s.timer.Reconcile(ctx, principal.FamilyID, kid.ID); err != nil {
			return nil, err
		}

		w, err := s.walletRepo.GetWallet(ctx, s.walletRepo.DB(), principal.FamilyID, kid.ID)
		if err != nil {
			return nil, err
		}
		sess, err := s.sessionRepo.GetSession(ctx, s.sessionRepo.DB(), principal.FamilyID, kid.ID)
		if err != nil {
			return nil, err
		}
		if w == nil || sess == nil {
			continue
		}

		state := KidState{
			MemberID:        kid.ID,
			Name:            kid.Name,
			LegacyBalance:   models.MoneyString(w.LegacyBalance),
			SpendingBalance: models.MoneyString(w.SpendingBalance),
			SavingsBalance:  models.MoneyString(w.SavingsBalance),
			Minutes:         w.Minutes,
			Locked:          w.Locked,
			Session: SessionState{
				Active: sess.Active,
				Mode:   sess.Mode,
			},
		}
		if sess.StartedAt != nil {
			ts := sess.StartedAt.Unix()
			state.Session.StartTs = &ts
		}
		if sess.EndedAt != nil {
			ts := sess.EndedAt.Unix()
			state.Session.EndTs = &ts
		}
		snapshot.Kids = append(snapshot.Kids, state)
	}

	latest, err := s.ledgerRepo.LastEntry(ctx, s.ledgerRepo.DB(), principal.FamilyID)
	if err != nil {
		return nil, err
	}
	snapshot.LatestLedger = latest
	return snapshot, nil
}

// PurchaseHistory returns a member's receipts, newest first. Kids may
// only view their own history.
func (s *FamilyService) PurchaseHistory(ctx context.Context, principal models.Principal, memberID string) ([]models.PurchaseRecord, error) {
	if !principal.IsAdmin() && principal.MemberID != memberID {
		return nil, fmt.Errorf("history of another member: %w", models.ErrForbidden)
	}
	if m, err := s.memberRepo.GetMember(ctx, principal.FamilyID, memberID); err != nil {
		return nil, err
	} else if m == nil {
		return nil, fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}
	return s.purchaseRepo.ListByMember(ctx, principal.FamilyID, memberID, 50)
}

// Ledger returns the family's full audit chain in seq order
func (s *FamilyService) Ledger(ctx context.Context, familyID string) ([]models.LedgerEntry, error) {
	return s.ledgerRepo.ListEntries(ctx, familyID)
}

// Catalog returns the family's parsed catalog
func (s *FamilyService) Catalog(ctx context.Context, familyID string) (*catalog.Catalog, error) {
	family, err := s.familyRepo.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("family %s: %w", familyID, models.ErrNotFound)
	}
	return catalog.Parse(family.Config)
}

// UpdateSavingsSettings replaces the family's savings policy (admin)
func (s *FamilyService) UpdateSavingsSettings(ctx context.Context, actorID, familyID string, policy catalog.SavingsPolicy) error {
	if policy.DefaultPercentage < 0 || policy.DefaultPercentage > 100 {
		return fmt.Errorf("savings percentage must be 0-100: %w", models.ErrInvalidInput)
	}
	for id, pct := range policy.Overrides {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("savings override for %s must be 0-100: %w", id, models.ErrInvalidInput)
		}
	}

	cat, err := s.Catalog(ctx, familyID)
	if err != nil {
		return err
	}
	cat.Savings = policy
	config, err := cat.Encode()
	if err != nil {
		return err
	}
	if err := s.familyRepo.UpdateConfig(ctx, familyID, config, s.clock.Now()); err != nil {
		return err
	}

	if _, err := s.recorder.Append(ctx, familyID, actorID, "", models.EventUpdateSavings, ledger.UpdateSavingsPayload{Policy: policy}); err != nil {
		logLedgerWarning(models.EventUpdateSavings, familyID, err)
	}
	return nil
}

// VerifyChain re-checks the family's hash chain. A failure marks the
// family suspect and notifies the operator channel; a pass clears the
// flag.
func (s *FamilyService) VerifyChain(ctx context.Context, familyID string) (*ledger.ChainReport, error) {
	family, err := s.familyRepo.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("family %s: %w", familyID, models.ErrNotFound)
	}

	report, err := s.verifier.VerifyChain(ctx, familyID)
	if err != nil {
		return nil, err
	}

	if !report.Valid {
		if err := s.familyRepo.SetChainSuspect(ctx, familyID, true, s.clock.Now()); err != nil {
			return nil, err
		}
		s.alerts.IntegrityFault(ctx, familyID, report.BrokenAtSeq, report.Reason)
		return report, fmt.Errorf("chain broken at seq %d: %w", report.BrokenAtSeq, models.ErrIntegrityFault)
	}

	if family.ChainSuspect {
		if err := s.familyRepo.SetChainSuspect(ctx, familyID, false, s.clock.Now()); err != nil {
			return nil, err
		}
	}
	return report, nil
}
