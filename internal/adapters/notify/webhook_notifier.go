// Package notify announces accepted votes to an external rendering
// surface. Delivery is fire-and-forget; the pipeline never depends on it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// WebhookNotifier posts a vote announcement to a configured webhook URL.
type WebhookNotifier struct {
	url  string
	http *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

func (n *WebhookNotifier) VoteAccepted(ctx context.Context, site *domain.VoteSite, rec *domain.VoteRecord, stats *domain.VoteStats) {
	if n.url == "" {
		return
	}

	payload := map[string]any{
		"user_id":        rec.UserID,
		"tenant_id":      rec.TenantID,
		"site":           site.Name,
		"site_slug":      site.Slug,
		"channel":        site.WebhookChannel,
		"reward_xp":      rec.RewardXP,
		"reward_money":   rec.RewardMoney,
		"total_votes":    stats.TotalVotes,
		"current_streak": stats.CurrentStreak,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notify: encoding announcement: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("notify: building announcement request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		log.Printf("notify: announcing vote for %s: %v", rec.UserID, err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("notify: announcement for %s returned status %d", rec.UserID, resp.StatusCode)
	}
}
