package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewHandler assembles the gateway, the bot-facing API and the admin
// surface. The webhook routes carry their own per-site auth; everything
// that mutates configuration or issues challenges sits behind JWT auth.
func NewHandler(
	webhookHandler *WebhookHandler,
	siteHandler *SiteHandler,
	challengeHandler *ChallengeHandler,
	statsHandler *StatsHandler,
	jwtSecret []byte,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Inbound gateway for pushed vote notifications.
	r.Post("/vote", webhookHandler.HandleGeneric)
	r.Post("/webhooks/vote/{siteFamily}/{tenantID}", webhookHandler.HandleRouted)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})

		r.Get("/sites/{tenantID}", siteHandler.ListSites)
		r.Get("/stats/{tenantID}/{userID}", statsHandler.GetStats)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))

			r.Post("/challenges", challengeHandler.IssueChallenge)
			r.Post("/sites/{tenantID}", siteHandler.UpsertSite)
			r.Put("/sites/{tenantID}", siteHandler.UpsertSite)
			r.Delete("/sites/{tenantID}/{slug}", siteHandler.DeleteSite)
		})
	})

	return r
}
