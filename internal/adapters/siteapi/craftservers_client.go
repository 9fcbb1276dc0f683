package siteapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// CraftserversClient implements the check-by-username API family: the
// site only answers with a hasVoted flag, provides no vote id and has no
// claim endpoint. The external vote id is synthesized per voting day so
// the same reported vote stays idempotent across polling passes.
type CraftserversClient struct {
	http *http.Client
	now  func() time.Time
}

func NewCraftserversClient() *CraftserversClient {
	return &CraftserversClient{http: newHTTPClient(), now: time.Now}
}

var _ ports.CheckClient = (*CraftserversClient)(nil)

func (c *CraftserversClient) CheckVote(ctx context.Context, site *domain.VoteSite, userID string) (*ports.CheckResult, error) {
	endpoint := joinURL(site.APIBase, "/api/check") +
		"?username=" + url.QueryEscape(userID) + "&key=" + url.QueryEscape(site.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build vote-check request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vote-check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	var out struct {
		HasVoted bool `json:"hasVoted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode vote-check response: %w", err)
	}
	if !out.HasVoted {
		return nil, nil
	}

	day := c.now().UTC().Format("2006-01-02")
	return &ports.CheckResult{
		ExternalVoteID: site.Slug + "-" + userID + "-" + day,
	}, nil
}

// ClaimVote is a no-op; this family has no claim endpoint.
func (c *CraftserversClient) ClaimVote(ctx context.Context, site *domain.VoteSite, userID string) error {
	return nil
}
