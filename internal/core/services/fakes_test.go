package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// In-memory ports for service tests. They mirror the behavior of the
// postgres adapters, including the uniqueness and cooldown enforcement
// inside CommitVote.

type fakeSiteRepo struct {
	mu    sync.Mutex
	sites map[string]*domain.VoteSite
}

func newFakeSiteRepo(sites ...*domain.VoteSite) *fakeSiteRepo {
	r := &fakeSiteRepo{sites: make(map[string]*domain.VoteSite)}
	for _, s := range sites {
		r.sites[s.TenantID+"|"+s.Slug] = s
	}
	return r
}

func (r *fakeSiteRepo) Save(ctx context.Context, site *domain.VoteSite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[site.TenantID+"|"+site.Slug] = site
	return nil
}

func (r *fakeSiteRepo) GetBySlug(ctx context.Context, tenantID, slug string) (*domain.VoteSite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	site, ok := r.sites[tenantID+"|"+slug]
	if !ok {
		return nil, domain.ErrUnknownSite
	}
	return site, nil
}

func (r *fakeSiteRepo) ListByTenant(ctx context.Context, tenantID string) ([]*domain.VoteSite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.VoteSite
	for _, s := range r.sites {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeSiteRepo) ListEnabled(ctx context.Context) ([]*domain.VoteSite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.VoteSite
	for _, s := range r.sites {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSiteRepo) Delete(ctx context.Context, tenantID, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sites, tenantID+"|"+slug)
	return nil
}

type fakeVoteRepo struct {
	mu       sync.Mutex
	records  []*domain.VoteRecord
	stats    map[string]domain.VoteStats
	xp       map[string]int64
	balances map[string]int64

	failCommit error
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{
		stats:    make(map[string]domain.VoteStats),
		xp:       make(map[string]int64),
		balances: make(map[string]int64),
	}
}

func (r *fakeVoteRepo) HasExternalID(ctx context.Context, externalVoteID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ExternalVoteID == externalVoteID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeVoteRepo) LastAcceptedAt(ctx context.Context, userID, tenantID, siteSlug string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLocked(userID, tenantID, siteSlug), nil
}

func (r *fakeVoteRepo) lastLocked(userID, tenantID, siteSlug string) *time.Time {
	var last *time.Time
	for _, rec := range r.records {
		if rec.UserID == userID && rec.TenantID == tenantID && rec.SiteSlug == siteSlug {
			if last == nil || rec.AcceptedAt.After(*last) {
				at := rec.AcceptedAt
				last = &at
			}
		}
	}
	return last
}

func (r *fakeVoteRepo) CommitVote(ctx context.Context, rec *domain.VoteRecord, cooldown time.Duration) (*domain.VoteStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCommit != nil {
		return nil, r.failCommit
	}

	if rec.ExternalVoteID != "" {
		for _, existing := range r.records {
			if existing.ExternalVoteID == rec.ExternalVoteID {
				return nil, domain.ErrDuplicateVote
			}
		}
	}
	if last := r.lastLocked(rec.UserID, rec.TenantID, rec.SiteSlug); last != nil && rec.AcceptedAt.Sub(*last) < cooldown {
		return nil, domain.ErrCooldownActive
	}

	r.records = append(r.records, rec)

	key := rec.TenantID + "|" + rec.UserID
	if rec.RewardXP > 0 {
		r.xp[key] += rec.RewardXP
	}
	if rec.RewardMoney > 0 {
		r.balances[key] += rec.RewardMoney
	}

	var prev *domain.VoteStats
	if s, ok := r.stats[key]; ok {
		prev = &s
	}
	next := domain.NextStats(prev, rec.UserID, rec.TenantID, rec.AcceptedAt)
	r.stats[key] = next
	return &next, nil
}

func (r *fakeVoteRepo) GetStats(ctx context.Context, userID, tenantID string) (*domain.VoteStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[tenantID+"|"+userID]
	if !ok {
		return nil, domain.ErrStatsNotFound
	}
	return &s, nil
}

func (r *fakeVoteRepo) CountRecords(ctx context.Context, tenantID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *fakeVoteRepo) recordCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []*domain.VoteRecord
}

func (n *fakeNotifier) VoteAccepted(ctx context.Context, site *domain.VoteSite, rec *domain.VoteRecord, stats *domain.VoteStats) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, rec)
}

func (n *fakeNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fakeChallengeRepo struct {
	mu       sync.Mutex
	sessions []*domain.ChallengeSession
}

func (r *fakeChallengeRepo) Create(ctx context.Context, session *domain.ChallengeSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions = append(r.sessions, &copied)
	return nil
}

func (r *fakeChallengeRepo) OpenSessions(ctx context.Context, tenantID, siteSlug string, now time.Time) ([]*domain.ChallengeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ChallengeSession
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.SiteSlug == siteSlug && !s.Used && s.Token != "" && !s.Expired(now) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeChallengeRepo) RecentIntents(ctx context.Context, tenantID, siteSlug string, since time.Time) ([]*domain.ChallengeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ChallengeSession
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.SiteSlug == siteSlug && !s.Used && !s.CreatedAt.Before(since) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeChallengeRepo) MarkUsed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ID.String() == id {
			s.Used = true
			return nil
		}
	}
	return domain.ErrChallengeNotFound
}

func (r *fakeChallengeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domain.ChallengeSession
	var removed int64
	for _, s := range r.sessions {
		if s.Expired(now) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.sessions = kept
	return removed, nil
}

type fakeOTPClient struct {
	mu       sync.Mutex
	token    string
	issueErr error
	redeemed map[string]bool
	checkErr error
	checks   int
	bases    []string
}

func (c *fakeOTPClient) IssueToken(ctx context.Context, site *domain.VoteSite, userID string) (string, error) {
	if c.issueErr != nil {
		return "", c.issueErr
	}
	return c.token, nil
}

func (c *fakeOTPClient) CheckRedemption(ctx context.Context, site *domain.VoteSite, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks++
	c.bases = append(c.bases, site.APIBase)
	if c.checkErr != nil {
		return false, c.checkErr
	}
	return c.redeemed[token], nil
}

func (c *fakeOTPClient) lastBase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bases) == 0 {
		return ""
	}
	return c.bases[len(c.bases)-1]
}

type fakeCheckClient struct {
	mu       sync.Mutex
	results  map[string]*ports.CheckResult
	checkErr error
	claimErr error
	claims   []string
}

func (c *fakeCheckClient) CheckVote(ctx context.Context, site *domain.VoteSite, userID string) (*ports.CheckResult, error) {
	if c.checkErr != nil {
		return nil, c.checkErr
	}
	return c.results[userID], nil
}

func (c *fakeCheckClient) ClaimVote(ctx context.Context, site *domain.VoteSite, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimErr != nil {
		return c.claimErr
	}
	c.claims = append(c.claims, userID)
	return nil
}
