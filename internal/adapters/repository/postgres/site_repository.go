package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

type siteRepository struct {
	db *sql.DB
}

func NewSiteRepository(db *sql.DB) ports.SiteRepository {
	return &siteRepository{
		db: db,
	}
}

func (r *siteRepository) Save(ctx context.Context, site *domain.VoteSite) error {
	query := `
		INSERT INTO vote_sites (
			tenant_id, slug, name, url, enabled, position, strategy, family,
			api_base, api_key, webhook_auth, webhook_secret, signature_secret,
			allowed_ips, webhook_id, webhook_channel, cooldown_hours,
			reward_xp, reward_money, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		ON CONFLICT (tenant_id, slug) DO UPDATE
		SET name = EXCLUDED.name,
		    url = EXCLUDED.url,
		    enabled = EXCLUDED.enabled,
		    position = EXCLUDED.position,
		    strategy = EXCLUDED.strategy,
		    family = EXCLUDED.family,
		    api_base = EXCLUDED.api_base,
		    api_key = EXCLUDED.api_key,
		    webhook_auth = EXCLUDED.webhook_auth,
		    webhook_secret = EXCLUDED.webhook_secret,
		    signature_secret = EXCLUDED.signature_secret,
		    allowed_ips = EXCLUDED.allowed_ips,
		    webhook_id = EXCLUDED.webhook_id,
		    webhook_channel = EXCLUDED.webhook_channel,
		    cooldown_hours = EXCLUDED.cooldown_hours,
		    reward_xp = EXCLUDED.reward_xp,
		    reward_money = EXCLUDED.reward_money,
		    updated_at = NOW();
	`
	_, err := r.db.ExecContext(ctx, query,
		site.TenantID, site.Slug, site.Name, site.URL, site.Enabled, site.Position,
		site.Strategy, site.Family, site.APIBase, site.APIKey, site.WebhookAuth,
		site.WebhookSecret, site.SignatureSecret, pq.Array(site.AllowedIPs),
		site.WebhookID, site.WebhookChannel, site.CooldownHours,
		site.RewardXP, site.RewardMoney,
	)
	if err != nil {
		return fmt.Errorf("failed to save site: %w", err)
	}
	return nil
}

const siteColumns = `
	tenant_id, slug, name, url, enabled, position, strategy, family,
	api_base, api_key, webhook_auth, webhook_secret, signature_secret,
	allowed_ips, webhook_id, webhook_channel, cooldown_hours,
	reward_xp, reward_money, created_at, updated_at
`

func (r *siteRepository) GetBySlug(ctx context.Context, tenantID, slug string) (*domain.VoteSite, error) {
	query := `SELECT ` + siteColumns + ` FROM vote_sites WHERE tenant_id = $1 AND slug = $2`

	site, err := scanSite(r.db.QueryRowContext(ctx, query, tenantID, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUnknownSite
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

func (r *siteRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.VoteSite, error) {
	query := `SELECT ` + siteColumns + ` FROM vote_sites WHERE tenant_id = $1 ORDER BY position, slug`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	return scanSites(rows)
}

func (r *siteRepository) ListEnabled(ctx context.Context) ([]*domain.VoteSite, error) {
	query := `SELECT ` + siteColumns + ` FROM vote_sites WHERE enabled ORDER BY tenant_id, position, slug`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled sites: %w", err)
	}
	defer rows.Close()

	return scanSites(rows)
}

func (r *siteRepository) Delete(ctx context.Context, tenantID, slug string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM vote_sites WHERE tenant_id = $1 AND slug = $2`, tenantID, slug)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*domain.VoteSite, error) {
	var site domain.VoteSite
	err := row.Scan(
		&site.TenantID, &site.Slug, &site.Name, &site.URL, &site.Enabled,
		&site.Position, &site.Strategy, &site.Family, &site.APIBase,
		&site.APIKey, &site.WebhookAuth, &site.WebhookSecret,
		&site.SignatureSecret, pq.Array(&site.AllowedIPs), &site.WebhookID,
		&site.WebhookChannel, &site.CooldownHours, &site.RewardXP,
		&site.RewardMoney, &site.CreatedAt, &site.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func scanSites(rows *sql.Rows) ([]*domain.VoteSite, error) {
	var sites []*domain.VoteSite
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}
	return sites, nil
}
