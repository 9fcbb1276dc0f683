package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionMethod records which path discovered a vote.
type IngestionMethod string

const (
	MethodWebhook IngestionMethod = "webhook"
	MethodOTP     IngestionMethod = "otp"
	MethodPolling IngestionMethod = "polling"
	MethodManual  IngestionMethod = "manual"
)

// VoteOutcome is the processor's verdict on a single vote event.
type VoteOutcome string

const (
	OutcomeAccepted    VoteOutcome = "accepted"
	OutcomeDuplicate   VoteOutcome = "duplicate"
	OutcomeCooldown    VoteOutcome = "cooldown"
	OutcomeUnknownSite VoteOutcome = "unknown-site"
)

// VoteEvent is the normalized, ingestion-path-agnostic description of an
// observed external vote. It is never persisted as such; the processor
// consumes it immediately.
type VoteEvent struct {
	UserID   string
	TenantID string
	SiteSlug string

	// ExternalVoteID uniquely identifies the vote at the source when the
	// source provides one. Empty means the source has no stable id.
	ExternalVoteID string

	VotedAt time.Time
	Method  IngestionMethod
}

// VoteRecord is the persisted, append-only trace of an accepted vote.
type VoteRecord struct {
	ID             uuid.UUID       `json:"id"`
	UserID         string          `json:"user_id"`
	TenantID       string          `json:"tenant_id"`
	SiteSlug       string          `json:"site_slug"`
	AcceptedAt     time.Time       `json:"accepted_at"`
	ExternalVoteID string          `json:"external_vote_id,omitempty"`
	Method         IngestionMethod `json:"method"`
	RewardXP       int64           `json:"reward_xp"`
	RewardMoney    int64           `json:"reward_money"`
}
