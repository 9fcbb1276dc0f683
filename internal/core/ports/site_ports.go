package ports

import (
	"context"

	"github.com/craftlands/votegate/internal/core/domain"
)

type SiteRepository interface {
	Save(ctx context.Context, site *domain.VoteSite) error
	GetBySlug(ctx context.Context, tenantID, slug string) (*domain.VoteSite, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.VoteSite, error)
	ListEnabled(ctx context.Context) ([]*domain.VoteSite, error)
	Delete(ctx context.Context, tenantID, slug string) error
}

type SaveSiteInput struct {
	TenantID        string
	Slug            string
	Name            string
	URL             string
	Enabled         bool
	Position        int
	Strategy        domain.DetectionStrategy
	Family          string
	APIBase         string
	APIKey          string
	WebhookAuth     domain.WebhookAuthMode
	WebhookSecret   string
	SignatureSecret string
	AllowedIPs      []string
	WebhookID       string
	WebhookChannel  string
	CooldownHours   int
	RewardXP        int64
	RewardMoney     int64
}

type SiteService interface {
	Upsert(ctx context.Context, input SaveSiteInput) (*domain.VoteSite, error)
	Get(ctx context.Context, tenantID, slug string) (*domain.VoteSite, error)
	List(ctx context.Context, tenantID string) ([]*domain.VoteSite, error)
	Remove(ctx context.Context, tenantID, slug string) error
}
