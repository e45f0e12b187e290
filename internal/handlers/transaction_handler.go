package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/service"
)

// TransactionHandler handles wallet, session, and transfer routes
type TransactionHandler struct {
	txService *service.TransactionService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(txService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{txService: txService}
}

// canActOn reports whether the principal may run a self-service
// operation on the target: admins may target anyone, kids only
// themselves.
func canActOn(principal models.Principal, memberID string) bool {
	return principal.IsAdmin() || principal.MemberID == memberID
}

func respondResult(w http.ResponseWriter, res *service.Result) {
	writeJSON(w, http.StatusOK, mutationResponse{
		OK:      true,
		Entry:   newLedgerEntryView(res.Entry),
		Warning: res.Warning,
	})
}

// PurchaseScreen buys a screen-time package for a kid
func (h *TransactionHandler) PurchaseScreen(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")
	if !canActOn(principal, kidID) {
		respondWithError(w, http.StatusForbidden, "cannot purchase for another member", "", nil)
		return
	}

	var req struct {
		PackageID string `json:"package_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	res, err := h.txService.PurchaseScreen(r.Context(), principal.FamilyID, kidID, req.PackageID)
	if err != nil {
		respondWithServiceError(w, "Screen purchase failed", err)
		return
	}
	respondResult(w, res)
}

// PurchaseFood buys a food item for a kid
func (h *TransactionHandler) PurchaseFood(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")
	if !canActOn(principal, kidID) {
		respondWithError(w, http.StatusForbidden, "cannot purchase for another member", "", nil)
		return
	}

	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	res, err := h.txService.PurchaseFood(r.Context(), principal.FamilyID, kidID, req.ItemID)
	if err != nil {
		respondWithServiceError(w, "Food purchase failed", err)
		return
	}
	respondResult(w, res)
}

// StartSession begins draining a kid's minutes
func (h *TransactionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")
	if !canActOn(principal, kidID) {
		respondWithError(w, http.StatusForbidden, "cannot start a session for another member", "", nil)
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	res, err := h.txService.StartSession(r.Context(), principal.FamilyID, kidID, req.Mode)
	if err != nil {
		respondWithServiceError(w, "Session start failed", err)
		return
	}
	respondResult(w, res)
}

// StopSession settles and ends a kid's active session
func (h *TransactionHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")
	if !canActOn(principal, kidID) {
		respondWithError(w, http.StatusForbidden, "cannot stop a session for another member", "", nil)
		return
	}

	res, err := h.txService.StopSession(r.Context(), principal.FamilyID, principal.MemberID, kidID)
	if err != nil {
		respondWithServiceError(w, "Session stop failed", err)
		return
	}
	respondResult(w, res)
}

// DailyAllotment credits a kid's daily amount with the savings split
// (admin)
func (h *TransactionHandler) DailyAllotment(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")

	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}

	res, err := h.txService.DailyAllotment(r.Context(), principal.FamilyID, principal.MemberID, kidID, amount)
	if err != nil {
		respondWithServiceError(w, "Daily allotment failed", err)
		return
	}
	respondResult(w, res)
}

// Reward credits a catalog reward (admin)
func (h *TransactionHandler) Reward(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")

	var req struct {
		ActionID string `json:"action_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	res, err := h.txService.Reward(r.Context(), principal.FamilyID, principal.MemberID, kidID, req.ActionID)
	if err != nil {
		respondWithServiceError(w, "Reward failed", err)
		return
	}
	respondResult(w, res)
}

// ConsequenceTime applies a time consequence (admin)
func (h *TransactionHandler) ConsequenceTime(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")

	var req struct {
		ConsequenceID string `json:"consequence_id"`
		Note          string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	res, err := h.txService.ConsequenceTime(r.Context(), principal.FamilyID, principal.MemberID, kidID, req.ConsequenceID, req.Note)
	if err != nil {
		respondWithServiceError(w, "Time consequence failed", err)
		return
	}
	respondResult(w, res)
}

// ConsequenceMoney applies a money consequence (admin)
func (h *TransactionHandler) ConsequenceMoney(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")

	var req struct {
		ConsequenceID string `json:"consequence_id"`
		Note          string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	res, err := h.txService.ConsequenceMoney(r.Context(), principal.FamilyID, principal.MemberID, kidID, req.ConsequenceID, req.Note)
	if err != nil {
		respondWithServiceError(w, "Money consequence failed", err)
		return
	}
	respondResult(w, res)
}

func parseAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req struct {
		Amount string `json:"amount_gb"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid amount_gb", "", err)
		return decimal.Zero, false
	}
	return amount, true
}

// TransferToSavings moves spending money into savings
func (h *TransactionHandler) TransferToSavings(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")

	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}

	res, err := h.txService.TransferToSavings(r.Context(), principal, kidID, amount)
	if err != nil {
		respondWithServiceError(w, "Transfer to savings failed", err)
		return
	}
	respondResult(w, res)
}

// TransferToSpending releases savings back into spending (admin)
func (h *TransactionHandler) TransferToSpending(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	kidID := r.PathValue("kidID")

	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}

	res, err := h.txService.TransferToSpending(r.Context(), principal, kidID, amount)
	if err != nil {
		respondWithServiceError(w, "Transfer to spending failed", err)
		return
	}
	respondResult(w, res)
}
