package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

func checkSite() *domain.VoteSite {
	return &domain.VoteSite{
		TenantID:      "guild-1",
		Slug:          "minelist.net",
		Enabled:       true,
		Strategy:      domain.StrategyCheckPoll,
		Family:        "minelist",
		CooldownHours: 24,
		RewardXP:      30,
	}
}

func intentSession(userID string, now time.Time) *domain.ChallengeSession {
	return &domain.ChallengeSession{
		ID:        uuid.New(),
		UserID:    userID,
		TenantID:  "guild-1",
		SiteSlug:  "minelist.net",
		CreatedAt: now,
		ExpiresAt: now.Add(domain.IntentWindow),
	}
}

func TestCheckPollerAcceptsAndClaims(t *testing.T) {
	site := checkSite()
	votes := newFakeVoteRepo()
	processor := NewProcessorService(newFakeSiteRepo(site), votes, nil)

	challenges := &fakeChallengeRepo{}
	now := time.Now()
	require.NoError(t, challenges.Create(context.Background(), intentSession("user-1", now)))

	client := &fakeCheckClient{results: map[string]*ports.CheckResult{
		"user-1": {ExternalVoteID: "minelist.net-8831", Claimable: true},
	}}
	poller := NewCheckPoller(challenges, map[string]ports.CheckClient{"minelist": client}, processor)

	poller.PollSite(context.Background(), site)

	assert.Equal(t, 1, votes.recordCount())
	assert.Equal(t, []string{"user-1"}, client.claims, "claim call follows the accepted vote")

	intents, err := challenges.RecentIntents(context.Background(), "guild-1", "minelist.net", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, intents, "spent intent drops out of the next pass")
}

func TestCheckPollerClaimFailureIsNonFatal(t *testing.T) {
	site := checkSite()
	votes := newFakeVoteRepo()
	processor := NewProcessorService(newFakeSiteRepo(site), votes, nil)

	challenges := &fakeChallengeRepo{}
	now := time.Now()
	require.NoError(t, challenges.Create(context.Background(), intentSession("user-1", now)))

	client := &fakeCheckClient{
		results:  map[string]*ports.CheckResult{"user-1": {ExternalVoteID: "minelist.net-1", Claimable: true}},
		claimErr: errors.New("claim endpoint down"),
	}
	poller := NewCheckPoller(challenges, map[string]ports.CheckClient{"minelist": client}, processor)

	poller.PollSite(context.Background(), site)

	assert.Equal(t, 1, votes.recordCount(), "internal grant survives a failed claim")
}

func TestCheckPollerNoVoteYet(t *testing.T) {
	site := checkSite()
	votes := newFakeVoteRepo()
	processor := NewProcessorService(newFakeSiteRepo(site), votes, nil)

	challenges := &fakeChallengeRepo{}
	now := time.Now()
	require.NoError(t, challenges.Create(context.Background(), intentSession("user-1", now)))

	client := &fakeCheckClient{results: map[string]*ports.CheckResult{}}
	poller := NewCheckPoller(challenges, map[string]ports.CheckClient{"minelist": client}, processor)

	poller.PollSite(context.Background(), site)

	assert.Equal(t, 0, votes.recordCount())
	intents, err := challenges.RecentIntents(context.Background(), "guild-1", "minelist.net", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, intents, 1, "intent stays live until it expires or a vote lands")
}

func TestCheckPollerDuplicateReportStillClaims(t *testing.T) {
	site := checkSite()
	votes := newFakeVoteRepo()
	processor := NewProcessorService(newFakeSiteRepo(site), votes, nil)

	// The vote was already ingested, e.g. by an earlier pass.
	_, err := processor.Process(context.Background(), domain.VoteEvent{
		UserID: "user-1", TenantID: "guild-1", SiteSlug: "minelist.net",
		ExternalVoteID: "minelist.net-8831", VotedAt: time.Now(), Method: domain.MethodPolling,
	})
	require.NoError(t, err)

	challenges := &fakeChallengeRepo{}
	now := time.Now()
	require.NoError(t, challenges.Create(context.Background(), intentSession("user-1", now)))

	client := &fakeCheckClient{results: map[string]*ports.CheckResult{
		"user-1": {ExternalVoteID: "minelist.net-8831", Claimable: true},
	}}
	poller := NewCheckPoller(challenges, map[string]ports.CheckClient{"minelist": client}, processor)
	poller.PollSite(context.Background(), site)

	assert.Equal(t, 1, votes.recordCount(), "duplicate report adds nothing")
	assert.Equal(t, []string{"user-1"}, client.claims, "still claimed so the site stops reporting it")
}

func TestCheckPollerMissingFamilyClient(t *testing.T) {
	site := checkSite()
	site.Family = "unheard-of"
	votes := newFakeVoteRepo()
	processor := NewProcessorService(newFakeSiteRepo(site), votes, nil)

	poller := NewCheckPoller(&fakeChallengeRepo{}, map[string]ports.CheckClient{}, processor)
	poller.PollSite(context.Background(), site)

	assert.Equal(t, 0, votes.recordCount())
}
