package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

var (
	ErrInvalidSlug     = errors.New("site slug is required")
	ErrInvalidStrategy = errors.New("unknown detection strategy")
)

// SiteSvc is the admin-facing surface over the site registry. The
// pipeline itself only ever reads sites through the repository.
type SiteSvc struct {
	repo ports.SiteRepository

	// onChange fires after a successful write so polling can be
	// reconciled against the new registry.
	onChange func()
}

func NewSiteService(repo ports.SiteRepository, onChange func()) *SiteSvc {
	return &SiteSvc{repo: repo, onChange: onChange}
}

func (s *SiteSvc) Upsert(ctx context.Context, input ports.SaveSiteInput) (*domain.VoteSite, error) {
	if input.Slug == "" {
		return nil, ErrInvalidSlug
	}
	switch input.Strategy {
	case domain.StrategyWebhook, domain.StrategyOTPPoll, domain.StrategyCheckPoll:
	default:
		return nil, ErrInvalidStrategy
	}
	if input.CooldownHours <= 0 {
		input.CooldownHours = 24
	}

	site := &domain.VoteSite{
		TenantID:        input.TenantID,
		Slug:            input.Slug,
		Name:            input.Name,
		URL:             input.URL,
		Enabled:         input.Enabled,
		Position:        input.Position,
		Strategy:        input.Strategy,
		Family:          input.Family,
		APIBase:         input.APIBase,
		APIKey:          input.APIKey,
		WebhookAuth:     input.WebhookAuth,
		WebhookSecret:   input.WebhookSecret,
		SignatureSecret: input.SignatureSecret,
		AllowedIPs:      input.AllowedIPs,
		WebhookID:       input.WebhookID,
		WebhookChannel:  input.WebhookChannel,
		CooldownHours:   input.CooldownHours,
		RewardXP:        input.RewardXP,
		RewardMoney:     input.RewardMoney,
		UpdatedAt:       time.Now(),
	}

	if err := s.repo.Save(ctx, site); err != nil {
		return nil, fmt.Errorf("failed to save site: %w", err)
	}
	if s.onChange != nil {
		s.onChange()
	}
	return site, nil
}

func (s *SiteSvc) Get(ctx context.Context, tenantID, slug string) (*domain.VoteSite, error) {
	return s.repo.GetBySlug(ctx, tenantID, slug)
}

func (s *SiteSvc) List(ctx context.Context, tenantID string) ([]*domain.VoteSite, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

func (s *SiteSvc) Remove(ctx context.Context, tenantID, slug string) error {
	if err := s.repo.Delete(ctx, tenantID, slug); err != nil {
		return err
	}
	if s.onChange != nil {
		s.onChange()
	}
	return nil
}
