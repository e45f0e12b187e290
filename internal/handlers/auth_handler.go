package handlers

import (
	"net/http"

	"github.com/WeCr8/goodbodybucks/internal/service"
)

// AuthHandler handles token issuance and access-code management
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Token exchanges a member access code for a bearer token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FamilyID   string `json:"family_id"`
		MemberID   string `json:"member_id"`
		AccessCode string `json:"access_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}
	if req.FamilyID == "" || req.MemberID == "" || req.AccessCode == "" {
		respondWithError(w, http.StatusBadRequest, "family_id, member_id and access_code are required", "", nil)
		return
	}

	token, err := h.authService.IssueToken(r.Context(), req.FamilyID, req.MemberID, req.AccessCode)
	if err != nil {
		respondWithServiceError(w, "Token issuance failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// SetAccessCode sets a member's access code (admin)
func (h *AuthHandler) SetAccessCode(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	memberID := r.PathValue("memberID")

	var req struct {
		AccessCode string `json:"access_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	if err := h.authService.SetAccessCode(r.Context(), principal.FamilyID, memberID, req.AccessCode); err != nil {
		respondWithServiceError(w, "Failed to set access code", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
