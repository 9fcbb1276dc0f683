package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
	"github.com/craftlands/votegate/internal/core/services"
)

type SiteHandler struct {
	service ports.SiteService
}

func NewSiteHandler(service ports.SiteService) *SiteHandler {
	return &SiteHandler{
		service: service,
	}
}

type saveSiteRequest struct {
	Slug            string   `json:"slug"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Enabled         bool     `json:"enabled"`
	Position        int      `json:"position"`
	Strategy        string   `json:"strategy"`
	Family          string   `json:"family"`
	APIBase         string   `json:"api_base"`
	APIKey          string   `json:"api_key"`
	WebhookAuth     string   `json:"webhook_auth"`
	WebhookSecret   string   `json:"webhook_secret"`
	SignatureSecret string   `json:"signature_secret"`
	AllowedIPs      []string `json:"allowed_ips"`
	WebhookID       string   `json:"webhook_id"`
	WebhookChannel  string   `json:"webhook_channel"`
	CooldownHours   int      `json:"cooldown_hours"`
	RewardXP        int64    `json:"reward_xp"`
	RewardMoney     int64    `json:"reward_money"`
}

func (h *SiteHandler) UpsertSite(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req saveSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	site, err := h.service.Upsert(r.Context(), ports.SaveSiteInput{
		TenantID:        tenantID,
		Slug:            req.Slug,
		Name:            req.Name,
		URL:             req.URL,
		Enabled:         req.Enabled,
		Position:        req.Position,
		Strategy:        domain.DetectionStrategy(req.Strategy),
		Family:          req.Family,
		APIBase:         req.APIBase,
		APIKey:          req.APIKey,
		WebhookAuth:     domain.WebhookAuthMode(req.WebhookAuth),
		WebhookSecret:   req.WebhookSecret,
		SignatureSecret: req.SignatureSecret,
		AllowedIPs:      req.AllowedIPs,
		WebhookID:       req.WebhookID,
		WebhookChannel:  req.WebhookChannel,
		CooldownHours:   req.CooldownHours,
		RewardXP:        req.RewardXP,
		RewardMoney:     req.RewardMoney,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidSlug) || errors.Is(err, services.ErrInvalidStrategy) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(site); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *SiteHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	sites, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sites); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *SiteHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	slug := chi.URLParam(r, "slug")

	if err := h.service.Remove(r.Context(), tenantID, slug); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
