package ports

import (
	"context"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
)

// VoteRepository is the sole write path into vote records and stats.
type VoteRepository interface {
	// HasExternalID reports whether a vote with this external id was
	// already committed. Fast path only; CommitVote re-enforces the
	// uniqueness constraint at the data layer.
	HasExternalID(ctx context.Context, externalVoteID string) (bool, error)

	// LastAcceptedAt returns the acceptance time of the most recent vote
	// for (user, tenant, site), or nil if there is none.
	LastAcceptedAt(ctx context.Context, userID, tenantID, siteSlug string) (*time.Time, error)

	// CommitVote inserts the record, applies the reward and updates the
	// stats in one transaction. It re-checks the cooldown while holding a
	// lock on the stats row and returns domain.ErrCooldownActive or
	// domain.ErrDuplicateVote without committing anything.
	CommitVote(ctx context.Context, rec *domain.VoteRecord, cooldown time.Duration) (*domain.VoteStats, error)

	GetStats(ctx context.Context, userID, tenantID string) (*domain.VoteStats, error)
	CountRecords(ctx context.Context, tenantID string) (int64, error)
}

// VoteProcessor is the synchronization point every ingestion path feeds.
type VoteProcessor interface {
	Process(ctx context.Context, event domain.VoteEvent) (domain.VoteOutcome, error)
}

// Notifier announces an accepted vote. Best effort; failures never roll
// back the vote.
type Notifier interface {
	VoteAccepted(ctx context.Context, site *domain.VoteSite, rec *domain.VoteRecord, stats *domain.VoteStats)
}
