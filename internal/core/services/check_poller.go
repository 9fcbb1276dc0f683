package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// CheckPoller re-checks external APIs for users who recently showed
// voting intent on check-poll sites.
type CheckPoller struct {
	challenges ports.ChallengeRepository
	clients    map[string]ports.CheckClient
	processor  ports.VoteProcessor
	now        func() time.Time
}

// NewCheckPoller wires one check client per site family.
func NewCheckPoller(challenges ports.ChallengeRepository, clients map[string]ports.CheckClient, processor ports.VoteProcessor) *CheckPoller {
	return &CheckPoller{
		challenges: challenges,
		clients:    clients,
		processor:  processor,
		now:        time.Now,
	}
}

// PollSite runs one pass for a site: derive users with recent intent,
// look each up independently, and feed positive results to the processor.
// Ordering across users is irrelevant; record uniqueness is enforced per
// event.
func (p *CheckPoller) PollSite(ctx context.Context, site *domain.VoteSite) {
	client, ok := p.clients[site.Family]
	if !ok {
		log.Printf("check poll %s/%s: no client for family %q", site.TenantID, site.Slug, site.Family)
		return
	}

	intents, err := p.challenges.RecentIntents(ctx, site.TenantID, site.Slug, p.now().Add(-domain.IntentWindow))
	if err != nil {
		log.Printf("check poll %s/%s: listing intents: %v", site.TenantID, site.Slug, err)
		return
	}

	var wg sync.WaitGroup
	for _, intent := range intents {
		wg.Add(1)
		go func(intent *domain.ChallengeSession) {
			defer wg.Done()
			p.checkUser(ctx, client, site, intent)
		}(intent)
	}
	wg.Wait()
}

func (p *CheckPoller) checkUser(ctx context.Context, client ports.CheckClient, site *domain.VoteSite, intent *domain.ChallengeSession) {
	result, err := client.CheckVote(ctx, site, intent.UserID)
	if err != nil {
		// Treated as "not yet voted"; the next cycle retries.
		return
	}
	if result == nil {
		return
	}

	event := domain.VoteEvent{
		UserID:         intent.UserID,
		TenantID:       intent.TenantID,
		SiteSlug:       intent.SiteSlug,
		ExternalVoteID: result.ExternalVoteID,
		VotedAt:        p.now(),
		Method:         domain.MethodPolling,
	}
	outcome, err := p.processor.Process(ctx, event)
	if err != nil {
		log.Printf("check poll %s/%s: processing vote for %s: %v", site.TenantID, site.Slug, intent.UserID, err)
		return
	}

	// The site detected a vote, so this intent is spent either way; keep
	// the next pass from re-querying the same user.
	if err := p.challenges.MarkUsed(ctx, intent.ID.String()); err != nil {
		log.Printf("check poll %s/%s: marking intent used: %v", site.TenantID, site.Slug, err)
	}

	if result.Claimable && (outcome == domain.OutcomeAccepted || outcome == domain.OutcomeDuplicate) {
		// External bookkeeping only. A failed claim after the vote is
		// committed is an external-sync issue, never a rollback.
		if err := client.ClaimVote(ctx, site, intent.UserID); err != nil {
			log.Printf("check poll %s/%s: claiming vote for %s: %v", site.TenantID, site.Slug, intent.UserID, err)
		}
	}
}
