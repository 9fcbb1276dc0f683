package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

type StatsHandler struct {
	votes ports.VoteRepository
}

func NewStatsHandler(votes ports.VoteRepository) *StatsHandler {
	return &StatsHandler{
		votes: votes,
	}
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	userID := chi.URLParam(r, "userID")

	stats, err := h.votes.GetStats(r.Context(), userID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrStatsNotFound) {
			http.Error(w, "no votes recorded", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
