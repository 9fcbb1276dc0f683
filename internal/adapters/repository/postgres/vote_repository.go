package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

const uniqueViolation = "23505"

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) HasExternalID(ctx context.Context, externalVoteID string) (bool, error) {
	query := `SELECT 1 FROM vote_records WHERE external_vote_id = $1 LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, externalVoteID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check external vote id: %w", err)
	}
	return true, nil
}

func (r *voteRepository) LastAcceptedAt(ctx context.Context, userID, tenantID, siteSlug string) (*time.Time, error) {
	query := `
		SELECT accepted_at FROM vote_records
		WHERE tenant_id = $1 AND site_slug = $2 AND user_id = $3
		ORDER BY accepted_at DESC
		LIMIT 1
	`
	var at time.Time
	err := r.db.QueryRowContext(ctx, query, tenantID, siteSlug, userID).Scan(&at)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last vote: %w", err)
	}
	return &at, nil
}

// CommitVote is the single atomic unit of work behind an accepted vote:
// record insert, reward upserts and stats update either all commit or none
// do. An advisory lock on (user, tenant, site) serializes commits across
// processes so the in-transaction cooldown re-check holds.
func (r *voteRepository) CommitVote(ctx context.Context, rec *domain.VoteRecord, cooldown time.Duration) (*domain.VoteStats, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lockKey := rec.UserID + "|" + rec.TenantID + "|" + rec.SiteSlug
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return nil, fmt.Errorf("failed to take vote lock: %w", err)
	}

	var last sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT MAX(accepted_at) FROM vote_records
		WHERE tenant_id = $1 AND site_slug = $2 AND user_id = $3
	`, rec.TenantID, rec.SiteSlug, rec.UserID).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check last vote: %w", err)
	}
	if last.Valid && rec.AcceptedAt.Sub(last.Time) < cooldown {
		return nil, domain.ErrCooldownActive
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote_records (id, user_id, tenant_id, site_slug, accepted_at, external_vote_id, method, reward_xp, reward_money)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`, rec.ID, rec.UserID, rec.TenantID, rec.SiteSlug, rec.AcceptedAt, rec.ExternalVoteID, rec.Method, rec.RewardXP, rec.RewardMoney)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateVote
		}
		return nil, fmt.Errorf("failed to insert vote record: %w", err)
	}

	if err := applyReward(ctx, tx, rec); err != nil {
		return nil, err
	}

	prev, err := statsForUpdate(ctx, tx, rec.TenantID, rec.UserID)
	if err != nil {
		return nil, err
	}
	next := domain.NextStats(prev, rec.UserID, rec.TenantID, rec.AcceptedAt)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote_stats (tenant_id, user_id, total_votes, monthly_votes, current_streak, best_streak, last_vote_at, last_monthly_reset_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, user_id) DO UPDATE
		SET total_votes = EXCLUDED.total_votes,
		    monthly_votes = EXCLUDED.monthly_votes,
		    current_streak = EXCLUDED.current_streak,
		    best_streak = EXCLUDED.best_streak,
		    last_vote_at = EXCLUDED.last_vote_at,
		    last_monthly_reset_at = EXCLUDED.last_monthly_reset_at;
	`, next.TenantID, next.UserID, next.TotalVotes, next.MonthlyVotes,
		next.CurrentStreak, next.BestStreak, next.LastVoteAt, next.LastMonthlyResetAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}
	return &next, nil
}

// applyReward grants the site's configured XP and currency as
// insert-or-increment upserts inside the vote transaction.
func applyReward(ctx context.Context, tx *sql.Tx, rec *domain.VoteRecord) error {
	if rec.RewardXP > 0 {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_levels (tenant_id, user_id, xp)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, user_id) DO UPDATE
			SET xp = user_levels.xp + EXCLUDED.xp;
		`, rec.TenantID, rec.UserID, rec.RewardXP)
		if err != nil {
			return fmt.Errorf("failed to apply xp reward: %w", err)
		}
	}
	if rec.RewardMoney > 0 {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_balances (tenant_id, user_id, balance)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, user_id) DO UPDATE
			SET balance = user_balances.balance + EXCLUDED.balance;
		`, rec.TenantID, rec.UserID, rec.RewardMoney)
		if err != nil {
			return fmt.Errorf("failed to apply money reward: %w", err)
		}
	}
	return nil
}

func statsForUpdate(ctx context.Context, tx *sql.Tx, tenantID, userID string) (*domain.VoteStats, error) {
	var stats domain.VoteStats
	err := tx.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, total_votes, monthly_votes, current_streak, best_streak, last_vote_at, last_monthly_reset_at
		FROM vote_stats
		WHERE tenant_id = $1 AND user_id = $2
		FOR UPDATE
	`, tenantID, userID).Scan(
		&stats.TenantID, &stats.UserID, &stats.TotalVotes, &stats.MonthlyVotes,
		&stats.CurrentStreak, &stats.BestStreak, &stats.LastVoteAt, &stats.LastMonthlyResetAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &stats, nil
}

func (r *voteRepository) GetStats(ctx context.Context, userID, tenantID string) (*domain.VoteStats, error) {
	var stats domain.VoteStats
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, total_votes, monthly_votes, current_streak, best_streak, last_vote_at, last_monthly_reset_at
		FROM vote_stats
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID).Scan(
		&stats.TenantID, &stats.UserID, &stats.TotalVotes, &stats.MonthlyVotes,
		&stats.CurrentStreak, &stats.BestStreak, &stats.LastVoteAt, &stats.LastMonthlyResetAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}

func (r *voteRepository) CountRecords(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote_records WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
