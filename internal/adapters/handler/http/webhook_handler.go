package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

const maxWebhookBody = 1 << 20

// WebhookHandler is the inbound gateway for pushed vote notifications.
// It resolves the target site, authenticates per-site, normalizes the
// payload and hands off to the processor synchronously.
type WebhookHandler struct {
	sites     ports.SiteRepository
	processor ports.VoteProcessor

	// defaultTenant backs the generic /vote endpoint when the sender
	// cannot pass a tenant parameter.
	defaultTenant string
}

func NewWebhookHandler(sites ports.SiteRepository, processor ports.VoteProcessor, defaultTenant string) *WebhookHandler {
	return &WebhookHandler{
		sites:         sites,
		processor:     processor,
		defaultTenant: defaultTenant,
	}
}

// HandleGeneric serves POST /vote?site=<slug>. Site resolution falls back
// to payload-shape inference when the site parameter is absent.
func (h *WebhookHandler) HandleGeneric(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	tenantID := r.URL.Query().Get("tenant")
	if tenantID == "" {
		tenantID = h.defaultTenant
	}

	var site *domain.VoteSite
	if slug := r.URL.Query().Get("site"); slug != "" {
		site, err = h.sites.GetBySlug(r.Context(), tenantID, slug)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownSite) {
				http.Error(w, "unknown site", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		// Same filter as the routed path: disabled or polled sites take
		// no pushed votes.
		if !site.Enabled || site.Strategy != domain.StrategyWebhook {
			http.Error(w, "site does not accept pushed votes", http.StatusBadRequest)
			return
		}
	} else {
		family, ok := inferFamily(body)
		if !ok {
			http.Error(w, "unable to resolve site from payload", http.StatusBadRequest)
			return
		}
		site, err = h.siteForFamily(r, tenantID, family)
		if err != nil {
			http.Error(w, "unable to resolve site from payload", http.StatusBadRequest)
			return
		}
	}

	h.handleInbound(w, r, site, body)
}

// HandleRouted serves POST /webhooks/vote/{siteFamily}/{tenantID}, the
// primary contract where the family is fixed by the path.
func (h *WebhookHandler) HandleRouted(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	family := chi.URLParam(r, "siteFamily")
	tenantID := chi.URLParam(r, "tenantID")

	site, err := h.siteForFamily(r, tenantID, family)
	if err != nil {
		http.Error(w, "no site configured for family", http.StatusBadRequest)
		return
	}

	h.handleInbound(w, r, site, body)
}

func (h *WebhookHandler) handleInbound(w http.ResponseWriter, r *http.Request, site *domain.VoteSite, body []byte) {
	if err := authenticateWebhook(site, r, body); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	adapter, ok := webhookFamilies[site.Family]
	if !ok {
		http.Error(w, "unknown site family", http.StatusBadRequest)
		return
	}

	vote, err := adapter(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event := domain.VoteEvent{
		UserID:   vote.UserID,
		TenantID: site.TenantID,
		SiteSlug: site.Slug,
		VotedAt:  vote.VotedAt,
		Method:   domain.MethodWebhook,
	}
	if vote.ExternalVoteID != "" {
		// Source ids are only unique per site; scope them by slug.
		event.ExternalVoteID = site.Slug + "-" + vote.ExternalVoteID
	}

	outcome, err := h.processor.Process(r.Context(), event)
	if err != nil {
		log.Printf("webhook %s/%s: processing vote: %v", site.TenantID, site.Slug, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if outcome == domain.OutcomeUnknownSite {
		http.Error(w, "unknown site", http.StatusBadRequest)
		return
	}

	// Duplicate and cooldown are fully handled; acknowledging them keeps
	// external sites from retry-storming the endpoint.
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": string(outcome)})
}

// siteForFamily finds the tenant's enabled webhook site for a family.
func (h *WebhookHandler) siteForFamily(r *http.Request, tenantID, family string) (*domain.VoteSite, error) {
	sites, err := h.sites.ListByTenant(r.Context(), tenantID)
	if err != nil {
		return nil, err
	}
	for _, site := range sites {
		if site.Enabled && site.Strategy == domain.StrategyWebhook && site.Family == family {
			return site, nil
		}
	}
	return nil, domain.ErrUnresolvableSite
}
