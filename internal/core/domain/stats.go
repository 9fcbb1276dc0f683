package domain

import "time"

// VoteStats is the longitudinal voting record for one user in one tenant.
type VoteStats struct {
	UserID             string    `json:"user_id"`
	TenantID           string    `json:"tenant_id"`
	TotalVotes         int64     `json:"total_votes"`
	MonthlyVotes       int64     `json:"monthly_votes"`
	CurrentStreak      int64     `json:"current_streak"`
	BestStreak         int64     `json:"best_streak"`
	LastVoteAt         time.Time `json:"last_vote_at"`
	LastMonthlyResetAt time.Time `json:"last_monthly_reset_at"`
}

// NextStats computes the stats row after one accepted vote at now.
// prev == nil means the user has never voted in this tenant.
//
// The streak transition depends only on the gap since the previous vote:
// under 24h leaves the streak untouched, 24h to 48h extends it, anything
// longer breaks it. The monthly counter resets when the last reset marker
// predates the current calendar month (UTC).
func NextStats(prev *VoteStats, userID, tenantID string, now time.Time) VoteStats {
	if prev == nil {
		return VoteStats{
			UserID:             userID,
			TenantID:           tenantID,
			TotalVotes:         1,
			MonthlyVotes:       1,
			CurrentStreak:      1,
			BestStreak:         1,
			LastVoteAt:         now,
			LastMonthlyResetAt: monthStart(now),
		}
	}

	next := *prev
	next.TotalVotes++

	switch gap := now.Sub(prev.LastVoteAt); {
	case gap < 24*time.Hour:
		// Same voting day; streak already counted.
	case gap < 48*time.Hour:
		next.CurrentStreak++
	default:
		next.CurrentStreak = 1
	}
	if next.CurrentStreak > next.BestStreak {
		next.BestStreak = next.CurrentStreak
	}

	if start := monthStart(now); prev.LastMonthlyResetAt.Before(start) {
		next.MonthlyVotes = 1
		next.LastMonthlyResetAt = start
	} else {
		next.MonthlyVotes++
	}

	next.LastVoteAt = now
	return next
}

func monthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
