package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// ProcessorService turns normalized vote events from any ingestion path
// into at most one committed vote record each. It is safe under
// concurrent invocation from the gateway and both pollers.
type ProcessorService struct {
	sites    ports.SiteRepository
	votes    ports.VoteRepository
	notifier ports.Notifier

	// locks serializes commits per (user, tenant, site) so two events
	// with different external ids cannot both pass the cooldown gate.
	locks sync.Map

	now func() time.Time
}

func NewProcessorService(sites ports.SiteRepository, votes ports.VoteRepository, notifier ports.Notifier) *ProcessorService {
	return &ProcessorService{
		sites:    sites,
		votes:    votes,
		notifier: notifier,
		now:      time.Now,
	}
}

// Process runs the idempotency gate, site resolution and cooldown gate,
// then commits the record, reward and stats in one transaction. Duplicate
// and cooldown outcomes are fully handled non-errors.
func (s *ProcessorService) Process(ctx context.Context, event domain.VoteEvent) (domain.VoteOutcome, error) {
	if event.ExternalVoteID != "" {
		seen, err := s.votes.HasExternalID(ctx, event.ExternalVoteID)
		if err != nil {
			return "", fmt.Errorf("failed to check external vote id: %w", err)
		}
		if seen {
			return domain.OutcomeDuplicate, nil
		}
	}

	site, err := s.sites.GetBySlug(ctx, event.TenantID, event.SiteSlug)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSite) {
			return domain.OutcomeUnknownSite, nil
		}
		return "", fmt.Errorf("failed to resolve site: %w", err)
	}

	unlock := s.lock(event.UserID, event.TenantID, event.SiteSlug)
	defer unlock()

	now := event.VotedAt
	if now.IsZero() {
		now = s.now()
	}

	last, err := s.votes.LastAcceptedAt(ctx, event.UserID, event.TenantID, event.SiteSlug)
	if err != nil {
		return "", fmt.Errorf("failed to load last vote: %w", err)
	}
	if last != nil && now.Sub(*last) < site.Cooldown() {
		return domain.OutcomeCooldown, nil
	}

	rec := &domain.VoteRecord{
		ID:             uuid.New(),
		UserID:         event.UserID,
		TenantID:       event.TenantID,
		SiteSlug:       event.SiteSlug,
		AcceptedAt:     now,
		ExternalVoteID: event.ExternalVoteID,
		Method:         event.Method,
		RewardXP:       site.RewardXP,
		RewardMoney:    site.RewardMoney,
	}

	stats, err := s.votes.CommitVote(ctx, rec, site.Cooldown())
	if err != nil {
		// The unique index on external_vote_id is the real safety net
		// against races on the fast-path check above.
		if errors.Is(err, domain.ErrDuplicateVote) {
			return domain.OutcomeDuplicate, nil
		}
		if errors.Is(err, domain.ErrCooldownActive) {
			return domain.OutcomeCooldown, nil
		}
		return "", fmt.Errorf("failed to commit vote: %w", err)
	}

	if s.notifier != nil {
		go s.notifier.VoteAccepted(context.WithoutCancel(ctx), site, rec, stats)
	}

	return domain.OutcomeAccepted, nil
}

func (s *ProcessorService) lock(userID, tenantID, siteSlug string) func() {
	key := userID + "|" + tenantID + "|" + siteSlug
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
