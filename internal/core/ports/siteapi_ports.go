package ports

import (
	"context"

	"github.com/craftlands/votegate/internal/core/domain"
)

// OTPClient talks to the token-handshake API family.
type OTPClient interface {
	// IssueToken asks the site to mint a one-time token for the user.
	IssueToken(ctx context.Context, site *domain.VoteSite, userID string) (string, error)

	// CheckRedemption reports whether the token has been redeemed, i.e.
	// the user completed the vote. "Not yet" is (false, nil); transport
	// and API failures are errors the poller swallows until next cycle.
	CheckRedemption(ctx context.Context, site *domain.VoteSite, token string) (bool, error)
}

// CheckResult is a positive vote-check answer.
type CheckResult struct {
	// ExternalVoteID must be globally unique per site.
	ExternalVoteID string

	// Claimable marks votes the external site expects us to claim so it
	// stops reporting them.
	Claimable bool
}

// CheckClient talks to a vote-check API family. Implementations differ in
// lookup key (external id vs username) and response shape.
type CheckClient interface {
	// CheckVote returns nil when the site reports no vote for the user.
	CheckVote(ctx context.Context, site *domain.VoteSite, userID string) (*CheckResult, error)

	// ClaimVote acknowledges consumption of a detected vote. External
	// bookkeeping only, independent from internal idempotency.
	ClaimVote(ctx context.Context, site *domain.VoteSite, userID string) error
}
