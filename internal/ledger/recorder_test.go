package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/repository"
)

func setupChain(t *testing.T) (*Recorder, *Verifier, *repository.LedgerRepository, *database.DB) {
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

	familyRepo := repository.NewFamilyRepository(db)
	if _, err := familyRepo.CreateFamily(context.Background(), "fam-1", "Test Family", "{}", "", time.Now()); err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}

	ledgerRepo := repository.NewLedgerRepository(db)
	clk := clock.NewManual(time.Unix(1700000000, 0))
	return NewRecorder(ledgerRepo, clk), NewVerifier(ledgerRepo), ledgerRepo, db
}

func TestRecorderAppendChain(t *testing.T) {
	recorder, verifier, ledgerRepo, _ := setupChain(t)
	ctx := context.Background()

	genesis, err := recorder.Append(ctx, "fam-1", "", "", models.EventGenesis, GenesisPayload{Note: "GENESIS"})
	if err != nil {
		t.Fatalf("Append(genesis) error = %v", err)
	}
	if genesis.Seq != 1 {
		t.Errorf("genesis seq = %d, want 1", genesis.Seq)
	}
	if genesis.PrevHash != models.GenesisHash {
		t.Errorf("genesis prev_hash = %s, want 64 zeros", genesis.PrevHash)
	}

	second, err := recorder.Append(ctx, "fam-1", "admin-1", "kid-1", models.EventReward, RewardPayload{Delta: "0.25"})
	if err != nil {
		t.Fatalf("Append(reward) error = %v", err)
	}
	if second.Seq != 2 {
		t.Errorf("second seq = %d, want 2", second.Seq)
	}
	if second.PrevHash != genesis.Hash {
		t.Errorf("second prev_hash = %s, want %s", second.PrevHash, genesis.Hash)
	}

	report, err := verifier.VerifyChain(ctx, "fam-1")
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if !report.Valid {
		t.Errorf("chain invalid: broken at %d (%s)", report.BrokenAtSeq, report.Reason)
	}
	if report.Entries != 2 {
		t.Errorf("entries = %d, want 2", report.Entries)
	}

	entries, err := ledgerRepo.ListEntries(ctx, "fam-1")
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			t.Errorf("entry %d seq = %d, want %d", i, e.Seq, i+1)
		}
	}
}

func TestAppendStoresPlainAndCanonicalPayload(t *testing.T) {
	recorder, _, _, _ := setupChain(t)

	payload := struct {
		Zebra string `json:"zebra"`
		Alpha string `json:"alpha"`
	}{Zebra: "z", Alpha: "a"}

	entry, err := recorder.Append(context.Background(), "fam-1", "", "", models.EventGenesis, payload)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if entry.Payload != `{"zebra":"z","alpha":"a"}` {
		t.Errorf("payload = %s, want declaration order preserved", entry.Payload)
	}
	if entry.CanonicalPayload != `{"alpha":"a","zebra":"z"}` {
		t.Errorf("canonical payload = %s, want sorted keys", entry.CanonicalPayload)
	}
	if entry.Hash != ComputeHash(entry.Ts, "", "", models.EventGenesis, entry.CanonicalPayload, entry.PrevHash) {
		t.Error("hash does not cover the canonical payload")
	}
}

func TestRecorderConcurrentAppends(t *testing.T) {
	recorder, verifier, _, _ := setupChain(t)
	ctx := context.Background()

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := recorder.Append(ctx, "fam-1", "admin-1", "kid-1", models.EventReward, RewardPayload{Delta: "0.25"})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent Append() error = %v", err)
		}
	}

	report, err := verifier.VerifyChain(ctx, "fam-1")
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if !report.Valid {
		t.Errorf("chain invalid after concurrent appends: %s", report.Reason)
	}
	if report.Entries != n {
		t.Errorf("entries = %d, want %d", report.Entries, n)
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	recorder, verifier, _, db := setupChain(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := recorder.Append(ctx, "fam-1", "admin-1", "kid-1", models.EventReward, RewardPayload{Delta: "1.00"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	// rewrite the stored payload of the middle entry behind the chain's back
	_, err := db.ExecContext(ctx,
		"UPDATE ledger_entries SET canonical_payload = ? WHERE family_id = ? AND seq = ?",
		`{"delta_gb":"999.00"}`, "fam-1", 2)
	if err != nil {
		t.Fatalf("Failed to tamper with entry: %v", err)
	}

	report, err := verifier.VerifyChain(ctx, "fam-1")
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if report.Valid {
		t.Fatal("tampered chain reported valid")
	}
	if report.BrokenAtSeq != 2 {
		t.Errorf("broken_at_seq = %d, want 2", report.BrokenAtSeq)
	}
}

func TestVerifyChainEmptyFamily(t *testing.T) {
	_, verifier, _, _ := setupChain(t)

	report, err := verifier.VerifyChain(context.Background(), "fam-1")
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if !report.Valid || report.Entries != 0 {
		t.Errorf("empty chain report = %+v, want valid with 0 entries", report)
	}
}

func TestAppendBadPayload(t *testing.T) {
	recorder, _, _, _ := setupChain(t)

	_, err := recorder.Append(context.Background(), "fam-1", "", "", models.EventGenesis, func() {})
	if err == nil {
		t.Fatal("Append() accepted an unmarshalable payload")
	}
	if errors.Is(err, models.ErrContention) {
		t.Errorf("encoding failure misreported as contention: %v", err)
	}
}
