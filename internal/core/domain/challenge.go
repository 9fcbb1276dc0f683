package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeTTL is how long an issued OTP token stays redeemable.
const ChallengeTTL = 5 * time.Minute

// IntentWindow is how far back the check poller looks for users who asked
// for a vote link but have not produced a vote yet.
const IntentWindow = time.Hour

// ChallengeSession is a short-lived token issued to a user so a follow-up
// poll can prove they voted on an external site. For check-poll sites the
// token is empty and the row only records intent.
//
// A session must never be matched to more than one vote event; the poller
// marks it used on the first redemption it observes, whatever the
// processor decides.
type ChallengeSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	TenantID  string    `json:"tenant_id"`
	SiteSlug  string    `json:"site_slug"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

// Expired reports whether the session can no longer be redeemed.
func (c *ChallengeSession) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
