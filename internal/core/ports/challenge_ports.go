package ports

import (
	"context"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
)

type ChallengeRepository interface {
	Create(ctx context.Context, session *domain.ChallengeSession) error

	// OpenSessions returns unused, unexpired sessions for one site.
	OpenSessions(ctx context.Context, tenantID, siteSlug string, now time.Time) ([]*domain.ChallengeSession, error)

	// RecentIntents returns sessions created within the trailing window
	// whose user has no vote for the site since the session was created.
	RecentIntents(ctx context.Context, tenantID, siteSlug string, since time.Time) ([]*domain.ChallengeSession, error)

	MarkUsed(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ChallengeService interface {
	// IssueChallenge requests a token from the external site (for otp-poll
	// sites) or records voting intent (for check-poll sites) and returns
	// the session.
	IssueChallenge(ctx context.Context, userID, tenantID, siteSlug string) (*domain.ChallengeSession, error)
}
