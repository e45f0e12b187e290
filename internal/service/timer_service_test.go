package service

import (
	"context"
	"testing"
	"time"
)

func startSession(t *testing.T, env *testEnv) {
	t.Helper()
	env.fund(t, "10.00")
	if _, err := env.txService.PurchaseScreen(context.Background(), env.familyID, env.kidID, "tab30"); err != nil {
		t.Fatalf("PurchaseScreen() error = %v", err)
	}
	if _, err := env.txService.StartSession(context.Background(), env.familyID, env.kidID, "screen"); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
}

func TestReconcileDrainsWholeMinutes(t *testing.T) {
	env := newTestEnv(t)
	startSession(t, env)
	start := *env.session(t).StartedAt

	// 125 seconds = 2 whole minutes charged, 5 seconds carried
	env.clk.Advance(125 * time.Second)
	if err := env.timerService.Reconcile(context.Background(), env.familyID, env.kidID); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	w := env.wallet(t)
	if w.Minutes != 28 {
		t.Errorf("minutes = %d, want 28", w.Minutes)
	}

	sess := env.session(t)
	if !sess.Active {
		t.Error("session deactivated with minutes remaining")
	}
	wantStart := start.Add(2 * time.Minute)
	if !sess.StartedAt.Equal(wantStart) {
		t.Errorf("started_at = %v, want %v (carry preserved)", sess.StartedAt, wantStart)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	env := newTestEnv(t)
	startSession(t, env)

	env.clk.Advance(3 * time.Minute)
	if err := env.timerService.Reconcile(context.Background(), env.familyID, env.kidID); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	before := env.wallet(t)
	sessBefore := env.session(t)

	// no wall-clock movement: second call must change nothing
	if err := env.timerService.Reconcile(context.Background(), env.familyID, env.kidID); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	after := env.wallet(t)
	if after.Minutes != before.Minutes || after.Version != before.Version {
		t.Errorf("wallet changed on idle reconcile: %+v vs %+v", after, before)
	}
	sessAfter := env.session(t)
	if sessAfter.Version != sessBefore.Version {
		t.Error("session changed on idle reconcile")
	}
}

func TestReconcileDeactivatesAtZero(t *testing.T) {
	env := newTestEnv(t)
	startSession(t, env) // 30 minutes

	env.clk.Advance(45 * time.Minute)
	if err := env.timerService.Reconcile(context.Background(), env.familyID, env.kidID); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	w := env.wallet(t)
	if w.Minutes != 0 {
		t.Errorf("minutes = %d, want 0 (floored)", w.Minutes)
	}

	sess := env.session(t)
	if sess.Active {
		t.Error("session still active after draining to zero")
	}
	if sess.EndedAt == nil {
		t.Error("ended_at not set on drained session")
	}
}

func TestReconcileNoSessionNoOp(t *testing.T) {
	env := newTestEnv(t)

	env.clk.Advance(time.Hour)
	if err := env.timerService.Reconcile(context.Background(), env.familyID, env.kidID); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if got := env.wallet(t).Minutes; got != 0 {
		t.Errorf("minutes = %d, want 0", got)
	}
}
