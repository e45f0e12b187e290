package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/ledger"
	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/repository"
)

// testEnv wires the full service stack against a throwaway SQLite
// database with a manually advanced clock.
type testEnv struct {
	db            *database.DB
	clk           *clock.Manual
	walletRepo    *repository.WalletRepository
	sessionRepo   *repository.SessionRepository
	ledgerRepo    *repository.LedgerRepository
	purchaseRepo  *repository.PurchaseRepository
	verifier      *ledger.Verifier
	timerService  *TimerService
	txService     *TransactionService
	familyService *FamilyService

	familyID string
	secret   string
	adminID  string
	kidID    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	clk := clock.NewManual(time.Unix(1700000000, 0))

	familyRepo := repository.NewFamilyRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	recorder := ledger.NewRecorder(ledgerRepo, clk)
	verifier := ledger.NewVerifier(ledgerRepo)
	timerService := NewTimerService(db, walletRepo, sessionRepo, clk, 5)
	txService := NewTransactionService(db, familyRepo, memberRepo, walletRepo, sessionRepo, purchaseRepo, recorder, timerService, clk, 5)

	alerts, err := NewAlertService("us-east-1", "", "", "")
	if err != nil {
		t.Fatalf("Failed to create alert service: %v", err)
	}
	familyService := NewFamilyService(db, familyRepo, memberRepo, walletRepo, sessionRepo, purchaseRepo, ledgerRepo, recorder, verifier, timerService, alerts, clk)

	ctx := context.Background()
	family, secret, err := familyService.SetupFamily(ctx, "Test Family")
	if err != nil {
		t.Fatalf("SetupFamily() error = %v", err)
	}

	env := &testEnv{
		db:            db,
		clk:           clk,
		walletRepo:    walletRepo,
		sessionRepo:   sessionRepo,
		ledgerRepo:    ledgerRepo,
		purchaseRepo:  purchaseRepo,
		verifier:      verifier,
		timerService:  timerService,
		txService:     txService,
		familyService: familyService,
		familyID:      family.ID,
		secret:        secret,
	}

	admin, err := familyService.Bootstrap(ctx, family.ID, secret, "admin-1", "parent@example.com", "Parent", "", "")
	if err != nil {
		t.Fatalf("Bootstrap(admin) error = %v", err)
	}
	env.adminID = admin.ID

	kid, err := familyService.AddMember(ctx, admin.ID, family.ID, "kid-1", "Kid One", models.RoleKid, "")
	if err != nil {
		t.Fatalf("AddMember(kid) error = %v", err)
	}
	env.kidID = kid.ID

	return env
}

func (e *testEnv) admin() models.Principal {
	return models.Principal{FamilyID: e.familyID, MemberID: e.adminID, Role: models.RoleAdmin}
}

func (e *testEnv) kid() models.Principal {
	return models.Principal{FamilyID: e.familyID, MemberID: e.kidID, Role: models.RoleKid}
}

func (e *testEnv) wallet(t *testing.T) *models.Wallet {
	t.Helper()
	w, err := e.walletRepo.GetWallet(context.Background(), e.walletRepo.DB(), e.familyID, e.kidID)
	if err != nil {
		t.Fatalf("GetWallet() error = %v", err)
	}
	if w == nil {
		t.Fatal("kid wallet missing")
	}
	return w
}

func (e *testEnv) session(t *testing.T) *models.Session {
	t.Helper()
	s, err := e.sessionRepo.GetSession(context.Background(), e.sessionRepo.DB(), e.familyID, e.kidID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if s == nil {
		t.Fatal("kid session missing")
	}
	return s
}

func mustGB(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad amount %q: %v", s, err)
	}
	return d
}

// fund credits the kid's wallet through the allotment path
func (e *testEnv) fund(t *testing.T, amount string) {
	t.Helper()
	if _, err := e.txService.DailyAllotment(context.Background(), e.familyID, e.adminID, e.kidID, mustGB(t, amount)); err != nil {
		t.Fatalf("DailyAllotment(%s) error = %v", amount, err)
	}
}

func (e *testEnv) verifyChainValid(t *testing.T) {
	t.Helper()
	report, err := e.verifier.VerifyChain(context.Background(), e.familyID)
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if !report.Valid {
		t.Fatalf("chain invalid at seq %d: %s", report.BrokenAtSeq, report.Reason)
	}
}
