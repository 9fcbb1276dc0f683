package siteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// MinelistClient implements the check-by-external-id API family: the site
// reports unclaimed votes as objects with their own ids, and expects a
// follow-up claim call so it stops reporting them.
type MinelistClient struct {
	http *http.Client
}

func NewMinelistClient() *MinelistClient {
	return &MinelistClient{http: newHTTPClient()}
}

var _ ports.CheckClient = (*MinelistClient)(nil)

func (c *MinelistClient) CheckVote(ctx context.Context, site *domain.VoteSite, userID string) (*ports.CheckResult, error) {
	endpoint := joinURL(site.APIBase, "/api/votes") + "?user=" + url.QueryEscape(userID) + "&unclaimed=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build vote-check request: %w", err)
	}
	req.Header.Set("Authorization", site.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vote-check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	var out struct {
		Votes []struct {
			ID      string `json:"id"`
			Claimed bool   `json:"claimed"`
		} `json:"votes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode vote-check response: %w", err)
	}

	for _, v := range out.Votes {
		if !v.Claimed && v.ID != "" {
			return &ports.CheckResult{
				ExternalVoteID: site.Slug + "-" + v.ID,
				Claimable:      true,
			}, nil
		}
	}
	return nil, nil
}

func (c *MinelistClient) ClaimVote(ctx context.Context, site *domain.VoteSite, userID string) error {
	body, err := json.Marshal(map[string]string{"user": userID})
	if err != nil {
		return fmt.Errorf("failed to encode claim request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(site.APIBase, "/api/votes/claim"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build claim request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", site.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("claim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus(resp)
	}
	return nil
}
