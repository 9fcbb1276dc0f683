package domain

import "time"

// DetectionStrategy tells the pipeline how votes on a site are discovered.
type DetectionStrategy string

const (
	// StrategyWebhook means the site pushes a notification to our gateway.
	StrategyWebhook DetectionStrategy = "webhook"
	// StrategyOTPPoll means we issue a one-time token and poll for its redemption.
	StrategyOTPPoll DetectionStrategy = "otp-poll"
	// StrategyCheckPoll means we periodically re-check the site's API per user.
	StrategyCheckPoll DetectionStrategy = "check-poll"
)

// WebhookAuthMode selects how inbound webhook requests for a site are authenticated.
type WebhookAuthMode string

const (
	AuthBearer      WebhookAuthMode = "bearer"
	AuthBodySecret  WebhookAuthMode = "body-secret"
	AuthIPAllowlist WebhookAuthMode = "ip-allowlist"
)

// VoteSite is the per-tenant configuration for one external vote listing.
// It is owned by tenant administrators; the pipeline only reads it.
type VoteSite struct {
	TenantID string            `json:"tenant_id"`
	Slug     string            `json:"slug"`
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	Enabled  bool              `json:"enabled"`
	Position int               `json:"position"`
	Strategy DetectionStrategy `json:"strategy"`

	// Family selects the payload/API adapter used for this site.
	Family string `json:"family"`

	// External API access, used by the otp-poll and check-poll strategies.
	APIBase string `json:"api_base,omitempty"`
	APIKey  string `json:"-"`

	// Inbound webhook authentication, used by the webhook strategy.
	WebhookAuth     WebhookAuthMode `json:"webhook_auth,omitempty"`
	WebhookSecret   string          `json:"-"`
	SignatureSecret string          `json:"-"`
	AllowedIPs      []string        `json:"allowed_ips,omitempty"`

	// Webhook identity as registered on the external site.
	WebhookID      string `json:"webhook_id,omitempty"`
	WebhookChannel string `json:"webhook_channel,omitempty"`

	CooldownHours int   `json:"cooldown_hours"`
	RewardXP      int64 `json:"reward_xp"`
	RewardMoney   int64 `json:"reward_money"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cooldown returns the site's cooldown window as a duration.
func (s *VoteSite) Cooldown() time.Duration {
	return time.Duration(s.CooldownHours) * time.Hour
}
