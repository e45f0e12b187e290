package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/WeCr8/goodbodybucks/internal/catalog"
	"github.com/WeCr8/goodbodybucks/internal/service"
)

// FamilyHandler handles family lifecycle and membership routes
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// SetupFamily creates a family with the default catalog
func (h *FamilyHandler) SetupFamily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	family, secret, err := h.familyService.SetupFamily(r.Context(), req.Name)
	if err != nil {
		respondWithServiceError(w, "Family setup failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"family_id":        family.ID,
		"name":             family.Name,
		"bootstrap_secret": secret,
	})
}

// Bootstrap registers a first-time member
func (h *FamilyHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("familyID")

	var req struct {
		BootstrapSecret string `json:"bootstrap_secret"`
		UID             string `json:"uid"`
		Email           string `json:"email"`
		Name            string `json:"name"`
		Role            string `json:"role"`
		AccessCode      string `json:"access_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}
	if req.UID == "" {
		respondWithError(w, http.StatusBadRequest, "uid is required", "", nil)
		return
	}

	m, err := h.familyService.Bootstrap(r.Context(), familyID, req.BootstrapSecret, req.UID, req.Email, req.Name, req.Role, req.AccessCode)
	if err != nil {
		respondWithServiceError(w, "Bootstrap failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberView(m))
}

// AddMember registers a member (admin)
func (h *FamilyHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())

	var req struct {
		MemberID   string `json:"member_id"`
		Name       string `json:"name"`
		Role       string `json:"role"`
		AccessCode string `json:"access_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	m, err := h.familyService.AddMember(r.Context(), principal.MemberID, principal.FamilyID, req.MemberID, req.Name, req.Role, req.AccessCode)
	if err != nil {
		respondWithServiceError(w, "Failed to add member", err)
		return
	}
	writeJSON(w, http.StatusCreated, newMemberView(m))
}

// RemoveMember deletes a member (admin)
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	memberID := r.PathValue("memberID")

	if err := h.familyService.RemoveMember(r.Context(), principal.MemberID, principal.FamilyID, memberID); err != nil {
		respondWithServiceError(w, "Failed to remove member", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ResetKid restores a kid's wallet and session (admin)
func (h *FamilyHandler) ResetKid(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")

	var req struct {
		Balance string `json:"balance_gb"`
		Minutes int    `json:"minutes"`
		Locked  bool   `json:"locked"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}
	balance := decimal.Zero
	if req.Balance != "" {
		var err error
		if balance, err = decimal.NewFromString(req.Balance); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid balance_gb", "", err)
			return
		}
	}

	if err := h.familyService.ResetKid(r.Context(), principal.MemberID, principal.FamilyID, kidID, balance, req.Minutes, req.Locked); err != nil {
		respondWithServiceError(w, "Failed to reset kid", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// State returns the reconciled family snapshot
func (h *FamilyHandler) State(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())

	snapshot, err := h.familyService.State(r.Context(), principal)
	if err != nil {
		respondWithServiceError(w, "Failed to build state snapshot", err)
		return
	}

	resp := struct {
		Kids         []service.KidState `json:"kids"`
		LatestLedger *ledgerEntryView   `json:"latest_ledger,omitempty"`
		ChainSuspect bool               `json:"chain_suspect"`
	}{
		Kids:         snapshot.Kids,
		LatestLedger: newLedgerEntryView(snapshot.LatestLedger),
		ChainSuspect: snapshot.ChainSuspect,
	}
	if resp.Kids == nil {
		resp.Kids = []service.KidState{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Catalog returns the family's catalog document
func (h *FamilyHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())

	cat, err := h.familyService.Catalog(r.Context(), principal.FamilyID)
	if err != nil {
		respondWithServiceError(w, "Failed to load catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// PurchaseHistory returns a member's receipts, newest first
func (h *FamilyHandler) PurchaseHistory(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	memberID := r.PathValue("memberID")

	records, err := h.familyService.PurchaseHistory(r.Context(), principal, memberID)
	if err != nil {
		respondWithServiceError(w, "Failed to load purchase history", err)
		return
	}

	views := make([]purchaseView, 0, len(records))
	for _, p := range records {
		views = append(views, newPurchaseView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": views})
}

// Ledger returns the family's full audit chain (admin)
func (h *FamilyHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())

	entries, err := h.familyService.Ledger(r.Context(), principal.FamilyID)
	if err != nil {
		respondWithServiceError(w, "Failed to load ledger", err)
		return
	}

	views := make([]ledgerEntryView, 0, len(entries))
	for i := range entries {
		views = append(views, *newLedgerEntryView(&entries[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}

// UpdateSavingsSettings replaces the family's savings policy (admin)
func (h *FamilyHandler) UpdateSavingsSettings(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())

	var req catalog.SavingsPolicy
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	if err := h.familyService.UpdateSavingsSettings(r.Context(), principal.MemberID, principal.FamilyID, req); err != nil {
		respondWithServiceError(w, "Failed to update savings settings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// VerifyChain re-checks the family's audit chain (admin)
func (h *FamilyHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())

	report, err := h.familyService.VerifyChain(r.Context(), principal.FamilyID)
	if err != nil && report == nil {
		respondWithServiceError(w, "Chain verification failed", err)
		return
	}

	resp := map[string]any{
		"valid":   report.Valid,
		"entries": report.Entries,
	}
	if !report.Valid {
		resp["broken_at_seq"] = report.BrokenAtSeq
		resp["reason"] = report.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}
