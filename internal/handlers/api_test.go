package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/ledger"
	"github.com/WeCr8/goodbodybucks/internal/repository"
	"github.com/WeCr8/goodbodybucks/internal/security"
	"github.com/WeCr8/goodbodybucks/internal/service"
)

// newTestServer wires the API against a throwaway SQLite database
func newTestServer(t *testing.T) (*httptest.Server, *clock.Manual) {
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
	tokens := security.NewTokenManager("test-secret", time.Hour)
	timerService := service.NewTimerService(db, walletRepo, sessionRepo, clk, 5)
	txService := service.NewTransactionService(db, familyRepo, memberRepo, walletRepo, sessionRepo, purchaseRepo, recorder, timerService, clk, 5)
	alerts, err := service.NewAlertService("us-east-1", "", "", "")
	if err != nil {
		t.Fatalf("Failed to create alert service: %v", err)
	}
	familyService := service.NewFamilyService(db, familyRepo, memberRepo, walletRepo, sessionRepo, purchaseRepo, ledgerRepo, recorder, verifier, timerService, alerts, clk)
	authService := service.NewAuthService(memberRepo, tokens, clk)

	mw := NewMiddleware(tokens)
	authHandler := NewAuthHandler(authService)
	familyHandler := NewFamilyHandler(familyService)
	txHandler := NewTransactionHandler(txService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/families", familyHandler.SetupFamily)
	mux.HandleFunc("POST /api/families/{familyID}/bootstrap", familyHandler.Bootstrap)
	mux.HandleFunc("POST /api/token", authHandler.Token)
	mux.HandleFunc("GET /api/state", mw.RequireAuth(familyHandler.State))
	mux.HandleFunc("POST /api/members", mw.RequireAdmin(familyHandler.AddMember))
	mux.HandleFunc("POST /api/members/{memberID}/access-code", mw.RequireAdmin(authHandler.SetAccessCode))
	mux.HandleFunc("POST /api/kids/{kidID}/allotment", mw.RequireAdmin(txHandler.DailyAllotment))
	mux.HandleFunc("GET /api/ledger", mw.RequireAdmin(familyHandler.Ledger))
	mux.HandleFunc("POST /api/kids/{kidID}/purchases/screen", mw.RequireAuth(txHandler.PurchaseScreen))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, clk
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestAPIFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	// create a family
	resp := postJSON(t, srv.URL+"/api/families", "", map[string]string{"name": "The Tests"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("setup status = %d, want 201", resp.StatusCode)
	}
	var setup struct {
		FamilyID        string `json:"family_id"`
		BootstrapSecret string `json:"bootstrap_secret"`
	}
	decodeBody(t, resp, &setup)
	if setup.FamilyID == "" {
		t.Fatal("no family_id returned")
	}
	if setup.BootstrapSecret == "" {
		t.Fatal("no bootstrap_secret returned")
	}

	// bootstrap without the family secret is refused
	resp = postJSON(t, srv.URL+"/api/families/"+setup.FamilyID+"/bootstrap",
		"", map[string]string{"uid": "admin-1", "email": "parent@example.com", "name": "Parent"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("secretless bootstrap status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// bootstrap the first member, who becomes admin, with an access code
	resp = postJSON(t, srv.URL+"/api/families/"+setup.FamilyID+"/bootstrap",
		"", map[string]string{
			"bootstrap_secret": setup.BootstrapSecret,
			"uid":              "admin-1",
			"email":            "parent@example.com",
			"name":             "Parent",
			"access_code":      "4321",
		})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bootstrap status = %d, want 200", resp.StatusCode)
	}
	var admin struct {
		Role string `json:"role"`
	}
	decodeBody(t, resp, &admin)
	if admin.Role != "admin" {
		t.Fatalf("first member role = %s, want admin", admin.Role)
	}

	// the admin exchanges the access code for a token
	resp = postJSON(t, srv.URL+"/api/token", "",
		map[string]string{"family_id": setup.FamilyID, "member_id": "admin-1", "access_code": "4321"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin token status = %d, want 200", resp.StatusCode)
	}
	var adminTokenResp struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &adminTokenResp)
	adminToken := adminTokenResp.Token
	if adminToken == "" {
		t.Fatal("empty admin token")
	}

	// add a kid with an access code
	resp = postJSON(t, srv.URL+"/api/members", adminToken,
		map[string]string{"member_id": "kid-1", "name": "Kid", "role": "kid", "access_code": "1234"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add member status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// kid exchanges the access code for a token
	resp = postJSON(t, srv.URL+"/api/token", "",
		map[string]string{"family_id": setup.FamilyID, "member_id": "kid-1", "access_code": "1234"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d, want 200", resp.StatusCode)
	}
	var tokenResp struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &tokenResp)
	if tokenResp.Token == "" {
		t.Fatal("no token returned")
	}

	// wrong access code is rejected
	resp = postJSON(t, srv.URL+"/api/token", "",
		map[string]string{"family_id": setup.FamilyID, "member_id": "kid-1", "access_code": "9999"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("bad code status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// admin credits the kid
	resp = postJSON(t, srv.URL+"/api/kids/kid-1/allotment", adminToken, map[string]string{"amount_gb": "10.00"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("allotment status = %d, want 200", resp.StatusCode)
	}
	var mutation struct {
		OK    bool `json:"ok"`
		Entry struct {
			EventType string `json:"event_type"`
			Seq       int64  `json:"seq"`
		} `json:"entry"`
	}
	decodeBody(t, resp, &mutation)
	if !mutation.OK || mutation.Entry.EventType != "DAILY_ALLOTMENT" {
		t.Errorf("mutation response = %+v", mutation)
	}

	// kid cannot run admin operations
	resp = postJSON(t, srv.URL+"/api/kids/kid-1/allotment", tokenResp.Token, map[string]string{"amount_gb": "10.00"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("kid allotment status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// kid buys screen time with their own token
	resp = postJSON(t, srv.URL+"/api/kids/kid-1/purchases/screen", tokenResp.Token, map[string]string{"package_id": "tab20"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purchase status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// unknown catalog entry maps to 400
	resp = postJSON(t, srv.URL+"/api/kids/kid-1/purchases/screen", tokenResp.Token, map[string]string{"package_id": "tab999"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown package status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	// state snapshot for the kid
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/state", nil)
	req.Header.Set("Authorization", "Bearer "+tokenResp.Token)
	stateResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("state request failed: %v", err)
	}
	if stateResp.StatusCode != http.StatusOK {
		t.Fatalf("state status = %d, want 200", stateResp.StatusCode)
	}
	var state struct {
		Kids []struct {
			MemberID string `json:"member_id"`
			Spending string `json:"spending_gb"`
			Minutes  int    `json:"minutes"`
		} `json:"kids"`
	}
	decodeBody(t, stateResp, &state)
	if len(state.Kids) != 1 {
		t.Fatalf("kids = %d, want 1", len(state.Kids))
	}
	if state.Kids[0].Spending != "9.00" {
		t.Errorf("spending = %s, want 9.00", state.Kids[0].Spending)
	}
	if state.Kids[0].Minutes != 20 {
		t.Errorf("minutes = %d, want 20", state.Kids[0].Minutes)
	}

	// the admin can read the full audit chain
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/ledger", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	ledgerResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("ledger request failed: %v", err)
	}
	if ledgerResp.StatusCode != http.StatusOK {
		t.Fatalf("ledger status = %d, want 200", ledgerResp.StatusCode)
	}
	var chain struct {
		Entries []struct {
			Seq       int64  `json:"seq"`
			EventType string `json:"event_type"`
		} `json:"entries"`
	}
	decodeBody(t, ledgerResp, &chain)
	if len(chain.Entries) != 5 {
		t.Fatalf("ledger entries = %d, want 5", len(chain.Entries))
	}
	if chain.Entries[0].EventType != "GENESIS" {
		t.Errorf("first event = %s, want GENESIS", chain.Entries[0].EventType)
	}

	// kids cannot
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/ledger", nil)
	req.Header.Set("Authorization", "Bearer "+tokenResp.Token)
	kidLedgerResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("ledger request failed: %v", err)
	}
	kidLedgerResp.Body.Close()
	if kidLedgerResp.StatusCode != http.StatusForbidden {
		t.Errorf("kid ledger status = %d, want 403", kidLedgerResp.StatusCode)
	}

	// no token at all
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/state", nil)
	anonResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("anonymous request failed: %v", err)
	}
	anonResp.Body.Close()
	if anonResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", anonResp.StatusCode)
	}
}

func TestAPIRejectsMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/families", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
