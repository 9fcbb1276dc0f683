package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
	"github.com/craftlands/votegate/internal/core/services"
)

type ChallengeHandler struct {
	service ports.ChallengeService
}

func NewChallengeHandler(service ports.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		service: service,
	}
}

type issueChallengeRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	SiteSlug string `json:"site_slug"`
}

// IssueChallenge lets the command surface request an OTP token or record
// voting intent for a user about to vote.
func (h *ChallengeHandler) IssueChallenge(w http.ResponseWriter, r *http.Request) {
	var req issueChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.TenantID == "" || req.SiteSlug == "" {
		http.Error(w, "user_id, tenant_id and site_slug are required", http.StatusBadRequest)
		return
	}

	session, err := h.service.IssueChallenge(r.Context(), req.UserID, req.TenantID, req.SiteSlug)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownSite):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrSiteDisabled), errors.Is(err, services.ErrChallengeUnsupported):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(session); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
