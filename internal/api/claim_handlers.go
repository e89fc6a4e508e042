package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/POLIGRAPH/poligraph/internal/database"
	"github.com/POLIGRAPH/poligraph/internal/engine"
)

// ClaimHandler handles HTTP requests for claim verification and verdicts.
type ClaimHandler struct {
	engine    *engine.Engine
	claimRepo *database.ClaimRepository
	logger    *slog.Logger
}

func NewClaimHandler(eng *engine.Engine, claimRepo *database.ClaimRepository, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{
		engine:    eng,
		claimRepo: claimRepo,
		logger:    logger,
	}
}

// GetClaim handles GET /api/claims/:id — the claim with its verdict, if any.
// A claim without a verdict reports the implicit Unverified status so the
// display layer always has something to render.
func (h *ClaimHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claimID := pathSegment(r, 3)
	if claimID == "" {
		http.Error(w, "Claim ID required", http.StatusBadRequest)
		return
	}

	claim, err := h.claimRepo.GetClaim(r.Context(), claimID)
	if err != nil {
		h.logger.Error("failed to get claim", "claim_id", claimID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if claim == nil {
		http.Error(w, "Claim not found", http.StatusNotFound)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"claim":            claim,
		"effective_status": claim.EffectiveStatus(),
	})
}

// VerifyClaim handles POST /api/claims/:id/verify — runs the verification
// pipeline synchronously and returns the persisted verdict. Re-running
// replaces the existing verdict; serializing concurrent re-verification of
// the same claim is the caller's responsibility.
func (h *ClaimHandler) VerifyClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claimID := pathSegment(r, 3)
	if claimID == "" {
		http.Error(w, "Claim ID required", http.StatusBadRequest)
		return
	}

	verdict, err := h.engine.VerifyClaim(r.Context(), claimID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Claim not found", http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "invalid claim") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("claim verification failed", "claim_id", claimID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, verdict)
}
