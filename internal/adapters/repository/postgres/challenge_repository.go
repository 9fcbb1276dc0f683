package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

type challengeRepository struct {
	db *sql.DB
}

func NewChallengeRepository(db *sql.DB) ports.ChallengeRepository {
	return &challengeRepository{
		db: db,
	}
}

func (r *challengeRepository) Create(ctx context.Context, session *domain.ChallengeSession) error {
	query := `
		INSERT INTO vote_challenges (id, user_id, tenant_id, site_slug, token, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.TenantID, session.SiteSlug,
		session.Token, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert challenge: %w", err)
	}
	return nil
}

func (r *challengeRepository) OpenSessions(ctx context.Context, tenantID, siteSlug string, now time.Time) ([]*domain.ChallengeSession, error) {
	query := `
		SELECT id, user_id, tenant_id, site_slug, token, created_at, expires_at, used
		FROM vote_challenges
		WHERE tenant_id = $1 AND site_slug = $2 AND NOT used AND token <> '' AND expires_at > $3
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, siteSlug, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// RecentIntents lists sessions in the trailing window whose user has not
// produced a vote for the site since showing intent.
func (r *challengeRepository) RecentIntents(ctx context.Context, tenantID, siteSlug string, since time.Time) ([]*domain.ChallengeSession, error) {
	query := `
		SELECT c.id, c.user_id, c.tenant_id, c.site_slug, c.token, c.created_at, c.expires_at, c.used
		FROM vote_challenges c
		WHERE c.tenant_id = $1 AND c.site_slug = $2 AND NOT c.used AND c.created_at >= $3
		  AND NOT EXISTS (
			SELECT 1 FROM vote_records v
			WHERE v.tenant_id = c.tenant_id AND v.site_slug = c.site_slug
			  AND v.user_id = c.user_id AND v.accepted_at >= c.created_at
		  )
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, siteSlug, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent intents: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *challengeRepository) MarkUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE vote_challenges SET used = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark challenge used: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrChallengeNotFound
	}
	return nil
}

func (r *challengeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vote_challenges WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted challenges: %w", err)
	}
	return n, nil
}

func scanSessions(rows *sql.Rows) ([]*domain.ChallengeSession, error) {
	var sessions []*domain.ChallengeSession
	for rows.Next() {
		var s domain.ChallengeSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.TenantID, &s.SiteSlug, &s.Token, &s.CreatedAt, &s.ExpiresAt, &s.Used); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}
	return sessions, nil
}
