package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// OTPPoller discovers redeemed one-time tokens for otp-poll sites and
// feeds them to the processor.
type OTPPoller struct {
	challenges ports.ChallengeRepository
	client     ports.OTPClient
	processor  ports.VoteProcessor
	now        func() time.Time
}

func NewOTPPoller(challenges ports.ChallengeRepository, client ports.OTPClient, processor ports.VoteProcessor) *OTPPoller {
	return &OTPPoller{
		challenges: challenges,
		client:     client,
		processor:  processor,
		now:        time.Now,
	}
}

// PollSite runs one pass over the site's open challenge sessions. Session
// checks fan out so one hanging external call cannot stall the others.
func (p *OTPPoller) PollSite(ctx context.Context, site *domain.VoteSite) {
	sessions, err := p.challenges.OpenSessions(ctx, site.TenantID, site.Slug, p.now())
	if err != nil {
		log.Printf("otp poll %s/%s: listing sessions: %v", site.TenantID, site.Slug, err)
		return
	}

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(session *domain.ChallengeSession) {
			defer wg.Done()
			p.checkSession(ctx, site, session)
		}(session)
	}
	wg.Wait()
}

func (p *OTPPoller) checkSession(ctx context.Context, site *domain.VoteSite, session *domain.ChallengeSession) {
	redeemed, err := p.client.CheckRedemption(ctx, site, session.Token)
	if err != nil {
		// Not yet voted or transient failure; the next cycle retries and
		// the session expires on its own if never redeemed.
		return
	}
	if !redeemed {
		return
	}

	event := domain.VoteEvent{
		UserID:         session.UserID,
		TenantID:       session.TenantID,
		SiteSlug:       session.SiteSlug,
		ExternalVoteID: "otp-" + session.Token,
		VotedAt:        p.now(),
		Method:         domain.MethodOTP,
	}
	outcome, err := p.processor.Process(ctx, event)
	if err != nil {
		// Commit failed; leave the session open so the next cycle can
		// re-deliver the vote once storage recovers.
		log.Printf("otp poll %s/%s: processing vote for %s: %v", site.TenantID, site.Slug, session.UserID, err)
		return
	}
	if outcome == domain.OutcomeAccepted {
		log.Printf("otp poll %s/%s: accepted vote for %s", site.TenantID, site.Slug, session.UserID)
	}

	// Mark the session used whatever outcome the processor decided, so a
	// token can never be matched to a second vote event.
	if err := p.challenges.MarkUsed(ctx, session.ID.String()); err != nil {
		log.Printf("otp poll %s/%s: marking session used: %v", site.TenantID, site.Slug, err)
	}
}
