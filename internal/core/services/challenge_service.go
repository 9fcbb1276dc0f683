package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// ErrChallengeUnsupported is returned when a challenge is requested for a
// site whose strategy does not poll.
var ErrChallengeUnsupported = errors.New("site strategy does not use challenges")

// ChallengeSvc issues OTP tokens and records voting intent. The returned
// sessions drive both background pollers.
type ChallengeSvc struct {
	sites      ports.SiteRepository
	challenges ports.ChallengeRepository
	otp        ports.OTPClient
	now        func() time.Time
}

func NewChallengeService(sites ports.SiteRepository, challenges ports.ChallengeRepository, otp ports.OTPClient) *ChallengeSvc {
	return &ChallengeSvc{
		sites:      sites,
		challenges: challenges,
		otp:        otp,
		now:        time.Now,
	}
}

func (s *ChallengeSvc) IssueChallenge(ctx context.Context, userID, tenantID, siteSlug string) (*domain.ChallengeSession, error) {
	site, err := s.sites.GetBySlug(ctx, tenantID, siteSlug)
	if err != nil {
		return nil, err
	}
	if !site.Enabled {
		return nil, domain.ErrSiteDisabled
	}

	now := s.now()
	session := &domain.ChallengeSession{
		ID:        uuid.New(),
		UserID:    userID,
		TenantID:  tenantID,
		SiteSlug:  siteSlug,
		CreatedAt: now,
	}

	switch site.Strategy {
	case domain.StrategyOTPPoll:
		token, err := s.otp.IssueToken(ctx, site, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to issue token on %s: %w", siteSlug, err)
		}
		session.Token = token
		session.ExpiresAt = now.Add(domain.ChallengeTTL)
	case domain.StrategyCheckPoll:
		// No handshake; the session only records intent so the check
		// poller knows whom to look up.
		session.ExpiresAt = now.Add(domain.IntentWindow)
	default:
		return nil, ErrChallengeUnsupported
	}

	if err := s.challenges.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}
	return session, nil
}
