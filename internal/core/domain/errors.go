package domain

import "errors"

var (
	ErrUnknownSite       = errors.New("vote site not configured")
	ErrSiteDisabled      = errors.New("vote site is disabled")
	ErrDuplicateVote     = errors.New("vote was already recorded")
	ErrCooldownActive    = errors.New("vote cooldown has not elapsed")
	ErrChallengeNotFound = errors.New("challenge session not found")
	ErrStatsNotFound     = errors.New("vote stats not found")
	ErrMissingIdentity   = errors.New("payload carries no user identity")
	ErrUnresolvableSite  = errors.New("unable to resolve target site")
)
