package handlers

import (
	"encoding/json"
	"net/http"

	"lost-found-backend/internal/middleware"
	"lost-found-backend/internal/models"
	"lost-found-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ClaimHandler handles claim-related HTTP requests
type ClaimHandler struct {
	claimService *services.ClaimService
	maxBodyBytes int64
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(claimService *services.ClaimService, maxBodyBytes int64) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		maxBodyBytes: maxBodyBytes,
	}
}

// SubmitClaim handles POST /api/v1/claims
func (h *ClaimHandler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := parseMultipart(w, r, h.maxBodyBytes); err != nil {
		respondFormError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	input := services.ClaimInput{
		ItemID:           r.FormValue("itemId"),
		FullName:         r.FormValue("fullName"),
		Email:            r.FormValue("email"),
		ProofDescription: r.FormValue("proofDescription"),
	}

	var proof *services.Upload
	if files := formUploads(r, "proofFile"); len(files) > 0 {
		proof = &files[0]
	}

	claimID, err := h.claimService.SubmitClaim(ctx, userID, input, proof)
	if err != nil {
		respondServiceError(w, err,
			log.Error().Str("user_id", userID).Str("item_id", input.ItemID),
			"Failed to submit claim")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"claimId": claimID,
	})
}

// ListClaims handles GET /api/v1/items/{item_id}/claims
func (h *ClaimHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	itemID := chi.URLParam(r, "item_id")

	claims, err := h.claimService.ListClaims(r.Context(), caller, itemID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("user_id", caller.ID).Str("item_id", itemID), "Failed to list claims")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"claims":  claims,
	})
}

// ReviewClaimRequest is the body of a claim review
type ReviewClaimRequest struct {
	Status models.ClaimStatus `json:"status"`
}

// ReviewClaim handles POST /api/v1/admin/claims/{claim_id}/review
func (h *ClaimHandler) ReviewClaim(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	claimID := chi.URLParam(r, "claim_id")

	var req ReviewClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claim, err := h.claimService.ReviewClaim(r.Context(), caller, claimID, req.Status)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("admin_id", caller.ID).Str("claim_id", claimID), "Failed to review claim")
		return
	}

	respondJSON(w, http.StatusOK, claim)
}
